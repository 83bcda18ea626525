package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jfi/employee-api/utils"
)

// Timeout cancels the request context after d. If the handler is still
// running at the deadline and nothing has been written yet, the request is
// answered with 504 and the deadline is recorded as the cause.
//
// Handlers must watch ctx.Done() for the deadline to take effect.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			tw := &timeoutWriter{ResponseWriter: w}
			defer func() {
				cancel()
				if errors.Is(ctx.Err(), context.DeadlineExceeded) && !tw.wroteHeader {
					RecordError(r.Context(), context.DeadlineExceeded)
					_ = utils.WriteGatewayTimeout(w, "")
				}
			}()

			next.ServeHTTP(tw, r.WithContext(ctx))
		})
	}
}

type timeoutWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.wroteHeader = true
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.wroteHeader = true
	return tw.ResponseWriter.Write(b)
}

func (tw *timeoutWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}
