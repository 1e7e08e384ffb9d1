package server

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// TimeoutMiddleware puts a deadline on the request context. Handlers must
// watch ctx.Done() themselves; nothing is interrupted forcibly. Reports of a
// timed-out request still run, see reporter.Reporter.Report.
//
// Requests that outlive the deadline get timeout=exceeded on their log line.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))

			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				AddLogField(ctx, "timeout", "exceeded")
			}
		})
	}
}
