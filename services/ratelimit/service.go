package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitRequest represents a rate limit check request
type RateLimitRequest struct {
	// Key identifies the client, usually its remote IP
	Key string
}

// RateLimitResult represents the result of a rate limit check
type RateLimitResult struct {
	Allowed    bool
	Limit      float64
	Burst      int
	RetryAfter time.Duration
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimitService keeps one token bucket per client key in memory and
// evicts buckets that have been idle for longer than the idle TTL.
type RateLimitService struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// Option configures a RateLimitService
type Option func(*RateLimitService)

// WithIdleTTL sets how long an unused bucket is kept.
func WithIdleTTL(d time.Duration) Option {
	return func(s *RateLimitService) { s.idleTTL = d }
}

// NewRateLimitService creates a new RateLimitService instance. An rps of zero
// or less allows every request.
func NewRateLimitService(rps float64, burst int, logger *zap.Logger, opts ...Option) *RateLimitService {
	if burst <= 0 {
		burst = 1
	}
	s := &RateLimitService{
		entries: make(map[string]*limiterEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 15 * time.Minute,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether requests are limited at all
func (s *RateLimitService) Enabled() bool {
	return s.rps > 0
}

// CheckLimit consumes one token from the client's bucket
func (s *RateLimitService) CheckLimit(_ context.Context, req RateLimitRequest) (*RateLimitResult, error) {
	result := &RateLimitResult{Allowed: true, Limit: float64(s.rps), Burst: s.burst}
	if !s.Enabled() {
		return result, nil
	}

	now := s.now()
	r := s.limiter(req.Key, now).ReserveN(now, 1)
	if !r.OK() {
		result.Allowed = false
		return result, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		// give the token back, the request is rejected rather than delayed
		r.CancelAt(now)
		result.Allowed = false
		result.RetryAfter = delay
	}
	return result, nil
}

func (s *RateLimitService) limiter(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}
	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[key] = &limiterEntry{lim: lim, lastSeen: now}
	return lim
}

// Cleanup removes buckets idle for longer than the idle TTL
func (s *RateLimitService) Cleanup() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// StartJanitor runs Cleanup every interval until ctx is done.
func (s *RateLimitService) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 || !s.Enabled() {
		return
	}
	t := time.NewTicker(interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := s.Cleanup(); n > 0 {
					s.logger.Debug("rate limit buckets evicted", zap.Int("count", n))
				}
			}
		}
	}()
}
