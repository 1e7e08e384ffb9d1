package reporter

import (
	"fmt"
	"strings"
	"time"

	"github.com/tjfontaine/eussiror/internal/failure"
	"github.com/tjfontaine/eussiror/internal/tracker"
)

const (
	// MaxBacktraceLines is the number of frames included in an issue body.
	MaxBacktraceLines = 20

	maxTitleMessageLength = 120
	timestampLayout       = "2006-01-02 15:04:05 UTC"
)

// Timestamp formats t in UTC as "YYYY-MM-DD HH:MM:SS UTC".
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// IssueTitle builds "[500] <kind>: <first line of message>", the message
// trimmed and cut to 120 characters.
func IssueTitle(ev failure.Event) string {
	msg := ev.Message()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	msg = truncate(strings.TrimSpace(msg), maxTitleMessageLength)
	return fmt.Sprintf("[500] %s: %s", ev.Kind(), msg)
}

// IssueBody renders the Markdown body of a new issue, ending with the hidden
// fingerprint marker later searches match on.
func IssueBody(ev failure.Event, rc failure.RequestContext, fingerprint string, now time.Time) string {
	var b strings.Builder

	b.WriteString("## Error Details\n\n")
	fmt.Fprintf(&b, "**Exception:** `%s`\n", ev.Kind())
	fmt.Fprintf(&b, "**Message:** %s\n", ev.Message())
	fmt.Fprintf(&b, "**First occurrence:** %s\n", Timestamp(now))
	b.WriteString(requestInfo(rc))
	b.WriteString("\n\n## Backtrace\n\n```\n")
	b.WriteString(backtrace(ev.Frames()))
	b.WriteString("\n```\n\n")
	b.WriteString(tracker.Marker(fingerprint))
	b.WriteString("\n")

	return b.String()
}

// OccurrenceComment is posted on an existing issue for a repeat failure.
func OccurrenceComment(now time.Time) string {
	return "**New occurrence:** " + Timestamp(now)
}

// requestInfo is empty unless both method and path are known.
func requestInfo(rc failure.RequestContext) string {
	method := rc.Get(failure.KeyMethod)
	path := rc.Get(failure.KeyPath)
	if method == "" || path == "" {
		return ""
	}

	parts := []string{fmt.Sprintf("**Request:** `%s %s`", method, path)}
	if addr := rc.Get(failure.KeyRemoteAddr); addr != "" {
		parts = append(parts, "**Remote IP:** "+addr)
	}
	if id := rc.Get(failure.KeyRequestID); id != "" {
		parts = append(parts, "**Request ID:** `"+id+"`")
	}
	return "\n" + strings.Join(parts, "\n")
}

func backtrace(frames []string) string {
	if len(frames) > MaxBacktraceLines {
		frames = frames[:MaxBacktraceLines]
	}
	return strings.Join(frames, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
