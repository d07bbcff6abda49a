package security

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultRateLimitRequests = 1000
	DefaultRateLimitWindow   = time.Hour
)

// TenantRateLimiter admits or rejects one request for a tenant.
type TenantRateLimiter interface {
	Allow(ctx context.Context, tenantID string) (bool, error)
}

// LocalRateLimiter is an in-process token bucket per tenant. The bucket
// holds `requests` tokens and refills at requests/window.
type LocalRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	cleanup  *time.Timer
	interval time.Duration
}

func CreateRateLimiter(requests int, window time.Duration) *LocalRateLimiter {
	if requests <= 0 {
		requests = DefaultRateLimitRequests
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}

	rl := &LocalRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
		interval: 5 * time.Minute,
	}
	rl.startCleanup()
	return rl
}

func (rl *LocalRateLimiter) Allow(_ context.Context, tenantID string) (bool, error) {
	return rl.limiterFor(tenantID).Allow(), nil
}

func (rl *LocalRateLimiter) limiterFor(tenantID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[tenantID]
	if !exists {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[tenantID] = limiter
	}
	return limiter
}

// Remaining reports the whole tokens left for tenantID.
func (rl *LocalRateLimiter) Remaining(tenantID string) int {
	return int(rl.limiterFor(tenantID).Tokens())
}

// Full buckets carry no state worth keeping.
func (rl *LocalRateLimiter) startCleanup() {
	rl.cleanup = time.AfterFunc(rl.interval, func() {
		rl.mu.Lock()
		now := time.Now()
		for key, limiter := range rl.limiters {
			if limiter.TokensAt(now) >= float64(rl.burst) {
				delete(rl.limiters, key)
			}
		}
		rl.mu.Unlock()

		rl.startCleanup()
	})
}

func (rl *LocalRateLimiter) Close() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.cleanup != nil {
		rl.cleanup.Stop()
	}
}
