// Package fingerprint derives the stable identity used to deduplicate failures.
//
// A fingerprint is the first 12 hex characters of the SHA-256 digest of
//
//	kind | first 200 characters of message | first application frame
//
// The first application frame is the first stack frame that does not look
// like library code (module cache, vendored packages, the Go runtime). When
// every frame is library code the first frame is used verbatim.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/tjfontaine/eussiror/internal/failure"
)

const (
	// Length is the number of hex characters kept from the digest.
	Length = 12
	// MessagePrefixLength is the number of message characters that contribute to the key.
	MessagePrefixLength = 200

	separator = "|"
)

// DefaultLibraryPatterns identify frames that belong to dependencies or the
// Go toolchain rather than the host application.
var DefaultLibraryPatterns = []string{
	"/pkg/mod/",
	"/vendor/",
	"/src/runtime/",
	"/usr/local/go/src/",
	"/go/src/net/http/",
}

var defaultEngine = New()

// Engine computes fingerprints with a fixed set of library path patterns.
type Engine struct {
	patterns []string
}

// New returns an Engine using patterns, or DefaultLibraryPatterns when none are given.
func New(patterns ...string) *Engine {
	if len(patterns) == 0 {
		patterns = DefaultLibraryPatterns
	}
	p := make([]string, len(patterns))
	copy(p, patterns)
	return &Engine{patterns: p}
}

// Compute fingerprints ev with DefaultLibraryPatterns.
func Compute(ev failure.Event) string {
	return defaultEngine.Compute(ev)
}

// Compute returns the fingerprint of ev. It never fails.
func (e *Engine) Compute(ev failure.Event) string {
	key := strings.Join([]string{
		ev.Kind(),
		truncate(ev.Message(), MessagePrefixLength),
		e.FirstApplicationFrame(ev.Frames()),
	}, separator)

	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:Length]
}

// FirstApplicationFrame returns the first frame matching no library pattern,
// falling back to the first frame, or "" when frames is empty.
func (e *Engine) FirstApplicationFrame(frames []string) string {
	for _, frame := range frames {
		if !e.isLibrary(frame) {
			return frame
		}
	}
	if len(frames) > 0 {
		return frames[0]
	}
	return ""
}

func (e *Engine) isLibrary(frame string) bool {
	for _, p := range e.patterns {
		if strings.Contains(frame, p) {
			return true
		}
	}
	return false
}

// truncate keeps the first n characters of s.
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
