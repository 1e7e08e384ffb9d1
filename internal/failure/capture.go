package failure

import (
	"fmt"
	"runtime"
	"strings"
)

// maxCapturedFrames bounds how many frames are walked when capturing a stack.
const maxCapturedFrames = 64

// KindOf returns the kind name for a Go value: its dynamic type with any
// leading pointer marker removed, e.g. "runtime.boundsError" or "myapp.NotFound".
func KindOf(v any) string {
	if v == nil {
		return KindPanic
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
}

// RootCause follows err's Unwrap chain to the innermost error. For joined
// errors the first one is followed.
func RootCause(err error) error {
	for err != nil {
		var next error
		switch u := err.(type) {
		case interface{ Unwrap() error }:
			next = u.Unwrap()
		case interface{ Unwrap() []error }:
			if errs := u.Unwrap(); len(errs) > 0 {
				next = errs[0]
			}
		}
		if next == nil {
			return err
		}
		err = next
	}
	return nil
}

// KindOfError names err by its root cause, so fmt.Errorf("...: %w", err)
// keeps the kind of the wrapped err.
func KindOfError(err error) string {
	if err == nil {
		return KindError
	}
	return KindOf(RootCause(err))
}

// FromError captures err together with the current goroutine stack.
// skip is the number of additional callers to omit, 0 meaning the caller of FromError.
// The message is err's full text; the kind is its root cause's.
func FromError(err error, skip int) Event {
	if err == nil {
		return NewEvent(KindError, "", Callers(skip+1))
	}
	return NewEvent(KindOfError(err), err.Error(), Callers(skip+1))
}

// FromPanic captures a recovered panic value. It must be called from the
// deferred function that recovered so the panicking frames are still on the stack.
func FromPanic(v any, skip int) Event {
	if err, ok := v.(error); ok {
		return NewEvent(KindOfError(err), err.Error(), Callers(skip+1))
	}
	return NewEvent(KindPanic, fmt.Sprint(v), Callers(skip+1))
}

// Callers formats the calling goroutine's stack as "file:line in function"
// strings, most recent first. skip 0 starts at the caller of Callers.
func Callers(skip int) []string {
	pcs := make([]uintptr, maxCapturedFrames)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	out := make([]string, 0, n)
	for {
		f, more := frames.Next()
		out = append(out, fmt.Sprintf("%s:%d in %s", f.File, f.Line, f.Function))
		if !more {
			break
		}
	}
	return out
}
