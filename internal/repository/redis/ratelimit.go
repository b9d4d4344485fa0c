package redis

import (
	"context"
	"fmt"
	"time"
)

const (
	rateLimitPrefix = "ratelimit:"
	rateLimitWindow = time.Minute
)

// RateLimiter is a fixed-window request counter. Each window has its own
// key that expires exactly when the window closes, so the reset time it
// reports is when the counter really clears.
type RateLimiter struct {
	client *Client
	limit  int64
	now    func() time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerMinute+burst
// requests per key in each one-minute window
func NewRateLimiter(client *Client, requestsPerMinute, burst int) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  int64(requestsPerMinute + burst),
		now:    time.Now,
	}
}

func windowKey(key string, windowStart time.Time) string {
	return fmt.Sprintf("%s%s:%d", rateLimitPrefix, key, windowStart.Unix())
}

// Allow counts a request for key in the current window.
// Returns (allowed, remaining, resetTime, error); resetTime is the window end.
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	windowStart := r.now().Truncate(rateLimitWindow)
	windowEnd := windowStart.Add(rateLimitWindow)
	fullKey := windowKey(key, windowStart)

	pipe := r.client.rdb.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireAt(ctx, fullKey, windowEnd)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	count := incr.Val()
	remaining := max(r.limit-count, 0)

	return count <= r.limit, int(remaining), windowEnd, nil
}

// Reset clears the current window's counter for key
func (r *RateLimiter) Reset(ctx context.Context, key string) error {
	fullKey := windowKey(key, r.now().Truncate(rateLimitWindow))
	return r.client.rdb.Del(ctx, fullKey).Err()
}
