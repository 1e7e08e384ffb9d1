package fingerprint

import (
	"regexp"
	"strings"
	"testing"

	"github.com/tjfontaine/eussiror/internal/failure"
)

var hexPattern = regexp.MustCompile(`^[0-9a-f]{12}$`)

func event(kind, message string, frames ...string) failure.Event {
	return failure.NewEvent(kind, message, frames)
}

func TestCompute_Format(t *testing.T) {
	fp := Compute(event("RuntimeError", "boom", "app/x.go:1"))
	if !hexPattern.MatchString(fp) {
		t.Errorf("Compute() = %q, want 12 lowercase hex chars", fp)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	a := Compute(event("RuntimeError", "boom", "app/x.go:1", "app/y.go:2"))
	b := Compute(event("RuntimeError", "boom", "app/x.go:1", "app/z.go:9"))
	if a != b {
		t.Errorf("same kind/message/first frame gave %q and %q", a, b)
	}
}

func TestCompute_Differs(t *testing.T) {
	base := event("RuntimeError", "boom", "app/x.go:1")

	tests := []struct {
		name  string
		other failure.Event
	}{
		{name: "kind", other: event("ArgumentError", "boom", "app/x.go:1")},
		{name: "message", other: event("RuntimeError", "bang", "app/x.go:1")},
		{name: "first application frame", other: event("RuntimeError", "boom", "app/y.go:1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Compute(base) == Compute(tt.other) {
				t.Errorf("expected different fingerprints when %s differs", tt.name)
			}
		})
	}
}

func TestCompute_NeverFails(t *testing.T) {
	tests := []failure.Event{
		event("", ""),
		failure.NewEvent("RuntimeError", "boom", nil),
		failure.NewEvent("RuntimeError", "boom", []string{}),
	}
	for _, ev := range tests {
		if fp := Compute(ev); !hexPattern.MatchString(fp) {
			t.Errorf("Compute(%+v) = %q", ev, fp)
		}
	}
}

func TestCompute_MessageTruncation(t *testing.T) {
	long := strings.Repeat("a", 250)
	truncated := long[:MessagePrefixLength]

	if Compute(event("RuntimeError", long, "app/x.go:1")) != Compute(event("RuntimeError", truncated, "app/x.go:1")) {
		t.Error("message beyond 200 characters should not affect the fingerprint")
	}

	shorter := long[:MessagePrefixLength-1]
	if Compute(event("RuntimeError", long, "app/x.go:1")) == Compute(event("RuntimeError", shorter, "app/x.go:1")) {
		t.Error("message within the first 200 characters should affect the fingerprint")
	}
}

func TestCompute_MessageTruncationRunes(t *testing.T) {
	long := strings.Repeat("é", 250)
	truncated := strings.Repeat("é", MessagePrefixLength)

	if Compute(event("RuntimeError", long, "app/x.go:1")) != Compute(event("RuntimeError", truncated, "app/x.go:1")) {
		t.Error("truncation should count characters, not bytes")
	}
}

func TestCompute_SkipsLibraryFrames(t *testing.T) {
	direct := event("RuntimeError", "boom",
		"/home/app/internal/orders/service.go:42 in orders.(*Service).Place",
	)
	viaLibrary := event("RuntimeError", "boom",
		"/usr/local/go/src/runtime/panic.go:792 in runtime.gopanic",
		"/root/go/pkg/mod/github.com/go-chi/chi/v5@v5.2.3/mux.go:90 in chi.(*Mux).ServeHTTP",
		"/home/app/internal/orders/service.go:42 in orders.(*Service).Place",
	)

	if Compute(direct) != Compute(viaLibrary) {
		t.Error("library frames ahead of the first application frame should be ignored")
	}
}

func TestFirstApplicationFrame(t *testing.T) {
	e := New()

	tests := []struct {
		name   string
		frames []string
		want   string
	}{
		{name: "empty", frames: nil, want: ""},
		{name: "app first", frames: []string{"/srv/app/main.go:10", "/srv/app/x.go:1"}, want: "/srv/app/main.go:10"},
		{name: "vendored then app", frames: []string{"/srv/app/vendor/lib/x.go:1", "/srv/app/main.go:10"}, want: "/srv/app/main.go:10"},
		{name: "all library", frames: []string{"/root/go/pkg/mod/a/b.go:1", "/usr/local/go/src/net/http/server.go:2"}, want: "/root/go/pkg/mod/a/b.go:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.FirstApplicationFrame(tt.frames); got != tt.want {
				t.Errorf("FirstApplicationFrame() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew_CustomPatterns(t *testing.T) {
	e := New("/gems/", "vendor/bundle")
	frames := []string{"/usr/lib/ruby/gems/3.3.0/rack.rb:1", "app/controllers/home.rb:10"}

	if got := e.FirstApplicationFrame(frames); got != "app/controllers/home.rb:10" {
		t.Errorf("FirstApplicationFrame() = %q", got)
	}
}

func TestCompute_KnownValue(t *testing.T) {
	// sha256("RuntimeError|boom|app/x.rb:1")
	got := Compute(event("RuntimeError", "boom", "app/x.rb:1"))
	want := "5a0671a606d6"
	if got != want {
		t.Errorf("Compute() = %q, want %q", got, want)
	}
}
