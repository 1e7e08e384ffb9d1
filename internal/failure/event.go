// Package failure models captured runtime failures: the immutable event
// snapshot, the request it happened in, and the kind hierarchy used to decide
// whether a failure should be ignored.
package failure

import (
	"net/http"
)

// Event is an immutable snapshot of a captured failure.
// Frames are ordered most-recent-first.
type Event struct {
	kind    string
	message string
	frames  []string
}

// NewEvent creates an Event. The frames slice is copied.
func NewEvent(kind, message string, frames []string) Event {
	var copied []string
	if len(frames) > 0 {
		copied = make([]string, len(frames))
		copy(copied, frames)
	}
	return Event{kind: kind, message: message, frames: copied}
}

// Kind returns the failure kind name.
func (e Event) Kind() string {
	return e.kind
}

// Message returns the failure message.
func (e Event) Message() string {
	return e.message
}

// Frames returns a copy of the stack frames, most recent first.
func (e Event) Frames() []string {
	if len(e.frames) == 0 {
		return nil
	}
	out := make([]string, len(e.frames))
	copy(out, e.frames)
	return out
}

// Well-known RequestContext keys.
const (
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyRemoteAddr = "remote_addr"
	KeyRequestID  = "request_id"
)

// RequestContext describes the operation that triggered a failure.
// A nil RequestContext is valid and means no context is known.
type RequestContext map[string]string

// Get returns the value for key, or "" when absent.
func (rc RequestContext) Get(key string) string {
	if rc == nil {
		return ""
	}
	return rc[key]
}

// RequestContextFromHTTP captures method, path and remote address of r.
func RequestContextFromHTTP(r *http.Request) RequestContext {
	if r == nil {
		return nil
	}
	rc := RequestContext{
		KeyMethod: r.Method,
	}
	if r.URL != nil {
		rc[KeyPath] = r.URL.Path
	}
	if r.RemoteAddr != "" {
		rc[KeyRemoteAddr] = r.RemoteAddr
	}
	return rc
}
