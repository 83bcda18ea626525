package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/jfi/employee-api/internal/observability"
	"github.com/jfi/employee-api/utils"
	"go.uber.org/zap"
)

// Recoverer turns a handler panic into a 500 response and records the panic
// as the request's cause. http.ErrAbortHandler is re-raised so net/http can
// abort the connection.
func Recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	log := observability.NewContextLogger(logger).Named("recoverer")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				ctx := r.Context()
				err := panicError(p)
				RecordError(ctx, err)

				if errors.Is(err, http.ErrAbortHandler) {
					panic(p)
				}

				log.Error(ctx, "panic recovered",
					zap.Any("panic", p),
					zap.ByteString("stack", debug.Stack()))

				if r.Header.Get("Connection") != "Upgrade" {
					_ = utils.WriteInternalServerError(w, "")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
