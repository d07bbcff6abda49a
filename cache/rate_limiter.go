package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter shared by every gateway instance
// pointed at the same Redis.
type RateLimiter struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
	now    func() time.Time
}

func CreateRateLimiter(c *RedisCache, limit int, window time.Duration) *RateLimiter {
	if window < time.Second {
		window = time.Second
	}
	return &RateLimiter{
		client: c.client,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}
}

func (r *RateLimiter) key(tenantID string) string {
	bucket := r.now().Unix() / int64(r.window/time.Second)
	return fmt.Sprintf("ratelimit:%s:%d", tenantID, bucket)
}

func (r *RateLimiter) Allow(ctx context.Context, tenantID string) (bool, error) {
	key := r.key(tenantID)

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, r.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	return incr.Val() <= r.limit, nil
}

// Used reports how many requests tenantID made in the current window.
func (r *RateLimiter) Used(ctx context.Context, tenantID string) (int64, error) {
	n, err := r.client.Get(ctx, r.key(tenantID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}
