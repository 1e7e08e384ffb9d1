package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/tjfontaine/eussiror/internal/failure"
)

// FailureReporter receives failures captured by ReportingMiddleware.
type FailureReporter interface {
	Report(ctx context.Context, ev failure.Event, rc failure.RequestContext)
}

// failureKey identifies the per-request failure slot.
type failureKey struct{}

type failureSlot struct {
	mu    sync.Mutex
	event *failure.Event
}

// RecordFailure marks err as the cause of the 500 response the handler is
// about to write. The stack is captured here, so call it from the handler.
// Only the last recorded failure is reported.
func RecordFailure(ctx context.Context, err error) {
	if err == nil {
		return
	}
	AddError(ctx, err)

	slot, ok := ctx.Value(failureKey{}).(*failureSlot)
	if !ok {
		return
	}
	ev := failure.FromError(err, 1)
	slot.mu.Lock()
	slot.event = &ev
	slot.mu.Unlock()
}

// ReportingMiddleware reports a request's failure when
//   - the response status is 500 and the handler called RecordFailure, or
//   - a panic escapes the handler; the panic is re-raised unchanged after
//     reporting so the recovery middleware further out still handles it.
//
// The response the client sees is never changed by reporting.
func ReportingMiddleware(reporter FailureReporter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slot := &failureSlot{}
			ctx := context.WithValue(r.Context(), failureKey{}, slot)
			r = r.WithContext(ctx)
			wrapped := newStatusRecorder(w)

			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr != http.ErrAbortHandler {
						// frames start at the runtime's panic machinery, not this closure
						reporter.Report(ctx, failure.FromPanic(rvr, 1), requestContext(r))
					}
					panic(rvr)
				}
			}()

			next.ServeHTTP(wrapped, r)

			if wrapped.Status() != http.StatusInternalServerError {
				return
			}
			slot.mu.Lock()
			ev := slot.event
			slot.mu.Unlock()
			if ev != nil {
				reporter.Report(ctx, *ev, requestContext(r))
			}
		})
	}
}

func requestContext(r *http.Request) failure.RequestContext {
	rc := failure.RequestContextFromHTTP(r)
	if id := GetRequestID(r.Context()); id != "" {
		rc[failure.KeyRequestID] = id
	}
	return rc
}
