package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func missingPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.yaml")
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if !slices.Equal(cfg.Environments, []string{"production"}) {
		t.Errorf("Environments = %v, want [production]", cfg.Environments)
	}
	if len(cfg.Labels) != 0 || len(cfg.Assignees) != 0 || len(cfg.IgnoredKinds) != 0 {
		t.Errorf("expected empty labels, assignees and ignored kinds, got %+v", cfg)
	}
	if !cfg.Async {
		t.Error("Async should default to true")
	}
	if cfg.Token != "" || cfg.Repository != "" {
		t.Error("token and repository should default to empty")
	}
}

func TestConfig_Valid(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		repository string
		want       bool
	}{
		{name: "missing token", repository: "owner/repo", want: false},
		{name: "missing repository", token: "token123", want: false},
		{name: "blank token", token: "   ", repository: "owner/repo", want: false},
		{name: "blank repository", token: "token123", repository: "   ", want: false},
		{name: "both present", token: "token123", repository: "owner/repo", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Token = tt.token
			cfg.Repository = tt.repository
			if got := cfg.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_ReportingEnabled(t *testing.T) {
	cfg := Default()
	cfg.Token = "token123"
	cfg.Repository = "owner/repo"

	if cfg.ReportingEnabled("development") {
		t.Error("development is not an active environment by default")
	}
	if !cfg.ReportingEnabled("production") {
		t.Error("production should be active")
	}

	cfg.Environments = []string{"production", "staging"}
	if !cfg.ReportingEnabled("staging") {
		t.Error("staging should be active when configured")
	}

	cfg.Token = ""
	if cfg.ReportingEnabled("production") {
		t.Error("invalid config should disable reporting")
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(missingPath(t))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !cfg.Async || cfg.Timeout != 10*time.Second || cfg.APIBaseURL != "https://api.github.com" {
			t.Errorf("unexpected defaults: %+v", cfg)
		}
		if !slices.Equal(cfg.Environments, []string{"production"}) {
			t.Errorf("Environments = %v", cfg.Environments)
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("EUSSIROR_TOKEN", "env-token")
		t.Setenv("EUSSIROR_REPOSITORY", "org/repo")
		t.Setenv("EUSSIROR_ENVIRONMENTS", "production, staging")
		t.Setenv("EUSSIROR_IGNORED_KINDS", "context.deadlineExceededError")
		t.Setenv("EUSSIROR_ASYNC", "false")
		t.Setenv("EUSSIROR_TIMEOUT", "3s")

		cfg, err := Load(missingPath(t))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Token != "env-token" || cfg.Repository != "org/repo" {
			t.Errorf("credentials = %q %q", cfg.Token, cfg.Repository)
		}
		if !slices.Equal(cfg.Environments, []string{"production", "staging"}) {
			t.Errorf("Environments = %v", cfg.Environments)
		}
		if !slices.Equal(cfg.IgnoredKinds, []string{"context.deadlineExceededError"}) {
			t.Errorf("IgnoredKinds = %v", cfg.IgnoredKinds)
		}
		if cfg.Async {
			t.Error("Async should be false")
		}
		if cfg.Timeout != 3*time.Second {
			t.Errorf("Timeout = %v", cfg.Timeout)
		}
	})

	t.Run("file", func(t *testing.T) {
		t.Setenv("TEST_GITHUB_TOKEN", "from-env")
		path := filepath.Join(t.TempDir(), "eussiror.yaml")
		content := `token: "${TEST_GITHUB_TOKEN}"
repository: owner/repo
environments: [staging]
labels: [bug, automated]
assignees: [octocat]
async: false
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Token != "from-env" {
			t.Errorf("Token = %q, want substituted value", cfg.Token)
		}
		if !slices.Equal(cfg.Labels, []string{"bug", "automated"}) {
			t.Errorf("Labels = %v", cfg.Labels)
		}
		if !slices.Equal(cfg.Assignees, []string{"octocat"}) {
			t.Errorf("Assignees = %v", cfg.Assignees)
		}
		if !slices.Equal(cfg.Environments, []string{"staging"}) {
			t.Errorf("Environments = %v", cfg.Environments)
		}
		if cfg.Async {
			t.Error("Async should be false")
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "eussiror.yaml")
		if err := os.WriteFile(path, []byte("token: [unterminated"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("expected a parse error")
		}
	})
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple substitution", input: "${TEST_VAR}", want: "test-value"},
		{name: "substitution in string", input: "prefix-${TEST_VAR}-suffix", want: "prefix-test-value-suffix"},
		{name: "no substitution", input: "plain-string", want: "plain-string"},
		{name: "undefined var", input: "${UNDEFINED_VAR_FOR_TEST}", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := substituteEnvVars(tt.input); got != tt.want {
				t.Errorf("substituteEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCurrentEnvironment(t *testing.T) {
	t.Setenv("EUSSIROR_ENV", "")
	t.Setenv("APP_ENV", "")
	if got := CurrentEnvironment(); got != "development" {
		t.Errorf("CurrentEnvironment() = %q, want development", got)
	}

	t.Setenv("APP_ENV", "staging")
	if got := CurrentEnvironment(); got != "staging" {
		t.Errorf("CurrentEnvironment() = %q, want staging", got)
	}

	t.Setenv("EUSSIROR_ENV", "production")
	if got := CurrentEnvironment(); got != "production" {
		t.Errorf("CurrentEnvironment() = %q, want production", got)
	}
}

func TestStore(t *testing.T) {
	s := NewStore(nil)

	if got := s.Get(); !got.Async || got.Token != "" {
		t.Errorf("lazy default = %+v", got)
	}

	s.Configure(func(c *Config) {
		c.Token = "mytoken"
		c.Repository = "org/repo"
	})
	got := s.Get()
	if got.Token != "mytoken" || got.Repository != "org/repo" {
		t.Errorf("after Configure = %+v", got)
	}

	// Copies handed out must not leak back into the store
	got.Labels = append(got.Labels, "leak")
	if len(s.Get().Labels) != 0 {
		t.Error("mutating a copy changed the stored config")
	}

	s.Reset()
	if s.Get().Token != "" {
		t.Error("Reset should restore defaults")
	}
}

func TestWriteSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eussiror.yaml")

	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample() error = %v", err)
	}
	if err := WriteSample(path); !errors.Is(err, ErrSampleExists) {
		t.Errorf("second WriteSample() error = %v, want ErrSampleExists", err)
	}

	t.Setenv("GITHUB_TOKEN", "sample-token")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("sample does not load: %v", err)
	}
	if cfg.Token != "sample-token" || !cfg.Async {
		t.Errorf("sample config = %+v", cfg)
	}
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eussiror.yaml")
	if err := os.WriteFile(path, []byte("repository: first/repo\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	initial, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	store := NewStore(initial)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := Watch(ctx, path, store, nil); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("repository: second/repo\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if store.Get().Repository == "second/repo" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("Repository = %q after reload, want second/repo", store.Get().Repository)
}

func TestWatch_EmptyPath(t *testing.T) {
	if err := Watch(context.Background(), "", NewStore(nil), nil); err == nil {
		t.Error("expected an error for an empty path")
	}
}
