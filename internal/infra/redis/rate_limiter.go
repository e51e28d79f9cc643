package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"financeflow/internal/domain"
	"financeflow/internal/domain/ports/adapter"
	"financeflow/internal/infra/metrics"
)

var _ adapter.RateLimiter = (*RateLimiter)(nil)

// INCR and the first-hit EXPIRE run in one round trip so a crash between
// them can never leave a counter without a TTL.
var luaIncrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return n`)

// RateLimiter is a fixed-window counter shared by all ingress replicas.
type RateLimiter struct {
	client *Client
	now    func() time.Time
}

func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (r *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	r.now = now
	return r
}

func (r *RateLimiter) CheckLimit(ctx context.Context, userID string, limit int, window time.Duration) (bool, error) {
	if window <= 0 {
		return false, fmt.Errorf("rate limit window %s: %w", window, domain.ErrInvalidArgument)
	}
	key := WindowKey(userID, r.now(), window)
	count, err := luaIncrWindow.Run(ctx, r.client.cli, []string{key}, ttlSeconds(window)).Int64()
	if err != nil {
		return false, &domain.TransientInfraError{Component: "rate_limiter", Err: err}
	}
	if count > int64(limit) {
		metrics.IncRateLimitRejection()
		return false, nil
	}
	return true, nil
}

// Usage returns how many calls userID made in the current window.
func (r *RateLimiter) Usage(ctx context.Context, userID string, window time.Duration) (int64, error) {
	if window <= 0 {
		return 0, fmt.Errorf("rate limit window %s: %w", window, domain.ErrInvalidArgument)
	}
	v, err := r.client.cli.Get(ctx, WindowKey(userID, r.now(), window)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, &domain.TransientInfraError{Component: "rate_limiter", Err: err}
	}
	return strconv.ParseInt(v, 10, 64)
}

// WindowKey is rate_limit:<user>:<floor(nowMs/windowMs)>.
func WindowKey(userID string, now time.Time, window time.Duration) string {
	idx := now.UnixMilli() / window.Milliseconds()
	return fmt.Sprintf("rate_limit:%s:%d", userID, idx)
}

func ttlSeconds(window time.Duration) int64 {
	ms := window.Milliseconds()
	return (ms + 999) / 1000
}
