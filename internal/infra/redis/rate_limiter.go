package redis

import (
	"context"
	"time"

	"jpk2json-service/internal/domain/ports/adapter"
	"jpk2json-service/internal/ratelimit"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var _ adapter.RateLimiter = (*RateLimiter)(nil)

// slidingWindowScript prunes entries older than the window, checks the
// remaining count against the limit and records the request, all inside one
// script so two callers racing on the same key cannot both take the last
// slot. Times are milliseconds.
const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
if redis.call('ZCARD', key) >= limit then
  return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`

// RateLimiter is the Redis-backed sliding-window limiter. A backend error
// admits the request: throttling is best-effort and a Redis outage must not
// take uploads down with it.
type RateLimiter struct {
	client RedisClient
	limit  int
	window time.Duration
	log    *zerolog.Logger
}

func NewRateLimiter(client RedisClient, limit int, window time.Duration, logger *zerolog.Logger) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window, log: logger}
}

func (r *RateLimiter) Allow(ctx context.Context, identity, operation string) (bool, error) {
	key := ratelimit.Key(identity, operation)
	res, err := r.client.Eval(ctx, slidingWindowScript,
		[]string{key},
		time.Now().UnixMilli(),
		r.window.Milliseconds(),
		r.limit,
		uuid.NewString(),
	)
	if err != nil {
		if r.log != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("rate limiter backend error, admitting request")
		}
		return true, nil
	}
	n, ok := res.(int64)
	return ok && n == 1, nil
}
