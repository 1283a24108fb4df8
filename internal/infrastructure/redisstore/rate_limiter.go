package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/survey-hub/survey-hub/internal/domain/ratelimit"
)

var allowScript = redis.NewScript(`
local c = redis.call('INCR', KEYS[1])
if c == 1 then redis.call('PEXPIRE', KEYS[1], ARGV[1]) end
return c
`)

// RateLimiter is a fixed-window limiter on Redis counters. The window
// starts at the first counted call and ends when the key expires, so it
// follows the Redis server clock rather than the caller's now.
type RateLimiter struct {
	client    redis.UniversalClient
	window    time.Duration
	threshold int
}

func NewRateLimiter(client redis.UniversalClient, window time.Duration, threshold int) *RateLimiter {
	if window <= 0 {
		window = ratelimit.DefaultWindow
	}
	if threshold <= 0 {
		threshold = ratelimit.DefaultThreshold
	}
	return &RateLimiter{client: client, window: window, threshold: threshold}
}

func (l *RateLimiter) Allow(ctx context.Context, userID string, _ time.Time) (bool, error) {
	n, err := allowScript.Run(ctx, l.client, []string{userKey(userID, "ratelimit")}, l.window.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n <= l.threshold, nil
}

// Sweep is a no-op: window keys expire on their own.
func (l *RateLimiter) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}
