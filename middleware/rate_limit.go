package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/jfi/employee-api/internal/observability"
	"github.com/jfi/employee-api/services"
	"github.com/jfi/employee-api/services/ratelimit"
	"github.com/jfi/employee-api/utils"
	"go.uber.org/zap"
)

// RateLimitChecker defines the interface for rate limit checking
type RateLimitChecker interface {
	CheckLimit(ctx context.Context, req ratelimit.RateLimitRequest) (*ratelimit.RateLimitResult, error)
}

// RateLimitMiddleware rejects clients that exceed their request rate
type RateLimitMiddleware struct {
	limiter RateLimitChecker
	logger  *observability.ContextLogger
}

// NewRateLimitMiddleware creates a new RateLimitMiddleware
func NewRateLimitMiddleware(limiter RateLimitChecker, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  observability.NewContextLogger(logger).Named("ratelimit"),
	}
}

// Limit answers 429 with a Retry-After header once the client key runs out
// of tokens. The key is the client IP from RemoteAddr, so RealIP should run
// first when the service sits behind a proxy.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := clientKey(r)

		result, err := m.limiter.CheckLimit(ctx, ratelimit.RateLimitRequest{Key: key})
		if err != nil {
			m.logger.Error(ctx, "failed to check rate limit", zap.Error(err))
			RecordError(ctx, err)
			_ = utils.WriteInternalServerError(w, "Failed to check rate limit")
			return
		}

		if result.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(result.Limit, 'f', -1, 64))
			w.Header().Set("X-RateLimit-Burst", strconv.Itoa(result.Burst))
		}

		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			m.logger.Warn(ctx, "request blocked by rate limit",
				zap.String("client", key),
				zap.Int("retry_after_seconds", retryAfter))

			RecordError(ctx, services.ErrRateLimitExceeded)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			_ = utils.WriteTooManyRequests(w, "", map[string]interface{}{
				"retry_after_seconds": retryAfter,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	if addr != "" {
		return addr
	}
	return "unknown"
}
