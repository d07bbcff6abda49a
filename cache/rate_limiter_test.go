package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLimiter(t *testing.T, limit int) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return CreateRateLimiter(CreateRedisCacheFromClient(client), limit, time.Hour), mr
}

func TestRateLimiter_Allow(t *testing.T) {
	limiter, mr := setupLimiter(t, 3)
	fixed := time.Unix(1700000000, 0)
	limiter.now = func() time.Time { return fixed }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "tenant-a")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be allowed", i+1)
	}

	ok, err := limiter.Allow(ctx, "tenant-a")
	require.NoError(t, err)
	assert.False(t, ok, "fourth request should be rejected")

	ok, err = limiter.Allow(ctx, "tenant-b")
	require.NoError(t, err)
	assert.True(t, ok, "tenants have separate windows")

	used, err := limiter.Used(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, int64(4), used)

	key := limiter.key("tenant-a")
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))
}

func TestRateLimiter_NextWindow(t *testing.T) {
	limiter, _ := setupLimiter(t, 1)
	now := time.Unix(1700000000, 0)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := limiter.Allow(ctx, "t")
	assert.True(t, ok)
	ok, _ = limiter.Allow(ctx, "t")
	assert.False(t, ok)

	now = now.Add(time.Hour)
	ok, err := limiter.Allow(ctx, "t")
	require.NoError(t, err)
	assert.True(t, ok, "a new window starts with a fresh count")
}

func TestRateLimiter_Unavailable(t *testing.T) {
	limiter, mr := setupLimiter(t, 10)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "t")
	assert.Error(t, err)
}

func TestRateLimiter_UsedWithoutTraffic(t *testing.T) {
	limiter, _ := setupLimiter(t, 10)
	used, err := limiter.Used(context.Background(), "idle")
	require.NoError(t, err)
	assert.Zero(t, used)
}
