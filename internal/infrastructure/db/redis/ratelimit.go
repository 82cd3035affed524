package redis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateWindow = time.Second

// RateLimiter is a fixed-window request counter shared by every replica.
// Key format: ratelimit:<scope>:<key>:<unix_second>
type RateLimiter struct {
	client *redis.Client
	scope  string
	limit  int64
	now    func() time.Time
}

// NewRateLimiter allows perSecond requests per key in each one-second window.
// Fractional budgets are rounded up.
func NewRateLimiter(client *redis.Client, scope string, perSecond float64) *RateLimiter {
	limit := int64(math.Ceil(perSecond))
	if limit < 1 {
		limit = 1
	}
	return &RateLimiter{client: client, scope: scope, limit: limit, now: time.Now}
}

// Allow counts one request for key and reports whether it fits the budget.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.key(key, l.now())

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, 2*rateWindow)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit: %w", err)
	}
	return incr.Val() <= l.limit, nil
}

func (l *RateLimiter) key(key string, at time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", l.scope, key, at.Unix())
}
