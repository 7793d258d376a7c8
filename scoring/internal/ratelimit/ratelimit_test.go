package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, limit int, window time.Duration) (*RedisRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rl, err := NewRedisRateLimiter(context.Background(), "redis://"+mr.Addr(), limit, window)
	require.NoError(t, err)
	t.Cleanup(func() { rl.Close() })
	return rl, mr
}

func TestNoOpRateLimiter(t *testing.T) {
	var limiter RateLimiter = NoOpRateLimiter{}
	for i := 0; i < 10; i++ {
		allowed, err := limiter.Allow(context.Background(), "any")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	assert.NoError(t, limiter.Close())
}

func TestRedisRateLimiter_EnforcesLimit(t *testing.T) {
	rl, _ := newLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := rl.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i)
	}

	allowed, err := rl.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = rl.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed, "keys are independent")
}

func TestRedisRateLimiter_WindowSlides(t *testing.T) {
	rl, _ := newLimiter(t, 2, time.Minute)
	ctx := context.Background()

	clock := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return clock }

	for i := 0; i < 2; i++ {
		allowed, err := rl.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, allowed)
		clock = clock.Add(time.Millisecond)
	}
	allowed, err := rl.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, allowed)

	clock = clock.Add(time.Minute)
	allowed, err = rl.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_SetsTTL(t *testing.T) {
	rl, mr := newLimiter(t, 5, 30*time.Second)
	_, err := rl.Allow(context.Background(), "k")
	require.NoError(t, err)

	assert.True(t, mr.Exists(keyPrefix+"k"))
	assert.Equal(t, 31*time.Second, mr.TTL(keyPrefix+"k"))
}

func TestRedisRateLimiter_RedisDown(t *testing.T) {
	rl, mr := newLimiter(t, 5, time.Minute)
	mr.Close()

	_, err := rl.Allow(context.Background(), "k")
	assert.Error(t, err)
}

func TestNewRedisRateLimiter_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewRedisRateLimiter(ctx, "not a url", 1, time.Minute)
	assert.Error(t, err)

	_, err = NewRedisRateLimiter(ctx, "redis://127.0.0.1:1", 1, time.Minute)
	assert.Error(t, err)

	_, err = NewRedisRateLimiter(ctx, "redis://127.0.0.1:6379", 0, time.Minute)
	assert.Error(t, err)
}
