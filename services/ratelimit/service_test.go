package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func TestRateLimitService_CheckLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled allows everything", func(t *testing.T) {
		service := NewRateLimitService(0, 0, zap.NewNop())

		for i := 0; i < 100; i++ {
			result, err := service.CheckLimit(ctx, RateLimitRequest{Key: "10.0.0.1"})
			require.NoError(t, err)
			assert.True(t, result.Allowed)
		}
		assert.False(t, service.Enabled())
	})

	t.Run("burst then reject", func(t *testing.T) {
		now := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
		service := NewRateLimitService(1, 2, zap.NewNop())
		service.now = fixedClock(&now)

		for i := 0; i < 2; i++ {
			result, err := service.CheckLimit(ctx, RateLimitRequest{Key: "10.0.0.1"})
			require.NoError(t, err)
			assert.True(t, result.Allowed)
		}

		result, err := service.CheckLimit(ctx, RateLimitRequest{Key: "10.0.0.1"})
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, time.Second, result.RetryAfter)
		assert.Equal(t, 2, result.Burst)

		now = now.Add(time.Second)
		result, err = service.CheckLimit(ctx, RateLimitRequest{Key: "10.0.0.1"})
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})

	t.Run("keys have separate buckets", func(t *testing.T) {
		now := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
		service := NewRateLimitService(1, 1, zap.NewNop())
		service.now = fixedClock(&now)

		a, _ := service.CheckLimit(ctx, RateLimitRequest{Key: "a"})
		b, _ := service.CheckLimit(ctx, RateLimitRequest{Key: "b"})
		a2, _ := service.CheckLimit(ctx, RateLimitRequest{Key: "a"})

		assert.True(t, a.Allowed)
		assert.True(t, b.Allowed)
		assert.False(t, a2.Allowed)
	})
}

func TestRateLimitService_Cleanup(t *testing.T) {
	now := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	service := NewRateLimitService(10, 10, zap.NewNop(), WithIdleTTL(time.Minute))
	service.now = fixedClock(&now)

	_, _ = service.CheckLimit(context.Background(), RateLimitRequest{Key: "old"})
	now = now.Add(2 * time.Minute)
	_, _ = service.CheckLimit(context.Background(), RateLimitRequest{Key: "fresh"})

	assert.Equal(t, 1, service.Cleanup())
	assert.Len(t, service.entries, 1)
	assert.Contains(t, service.entries, "fresh")
}
