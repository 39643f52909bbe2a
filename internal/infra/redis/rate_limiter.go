package redis

import (
	"context"
	"time"
)

// RateLimiter is a fixed-window counter. The first hit in a window creates
// the key with a TTL; every hit increments it. Redis being the single
// counter makes the budget hold across app replicas.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow reports whether the caller still has budget in the current window.
// A Redis error surfaces as (false, err); the queue decides how to treat an
// undecidable limit.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	n, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}
	if n == 1 {
		// New window; schedule its reset.
		if err := r.client.Expire(ctx, key, window); err != nil {
			return false, err
		}
	}
	return n <= int64(limit), nil
}

// CallerKey buckets dispatch quota per caller class.
func CallerKey(caller string) string {
	return "dispatch_rate:" + caller
}
