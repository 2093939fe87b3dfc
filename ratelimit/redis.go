package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const slidingWindowScript = `
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[2])
local count = redis.call("ZCARD", KEYS[1])
if count >= tonumber(ARGV[4]) then
  return 0
end
redis.call("ZADD", KEYS[1], ARGV[1], ARGV[5])
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return 1
`

var slidingWindowLua = redis.NewScript(slidingWindowScript)

// Redis is a Limiter shared across processes. Each identity owns a sorted
// set scored by millisecond timestamps that expires one window after its
// last admitted request.
type Redis struct {
	redis  redis.UniversalClient
	config Config
	prefix string
}

// NewRedis returns a Redis-backed limiter. An empty prefix selects "rl".
func NewRedis(client redis.UniversalClient, prefix string, cfg Config) (*Redis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%w: nil client", ErrRedisUnavailable)
	}
	if prefix == "" {
		prefix = "rl"
	}
	return &Redis{redis: client, config: cfg, prefix: prefix}, nil
}

// Allow implements Limiter.
func (r *Redis) Allow(ctx context.Context, identityID string, now time.Time) error {
	admitted, err := slidingWindowLua.Run(
		ctx,
		r.redis,
		[]string{r.key(identityID)},
		now.UnixMilli(),
		now.Add(-r.config.Window).UnixMilli(),
		r.config.Window.Milliseconds(),
		r.config.Max,
		uuid.NewString(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if admitted == 0 {
		return &ExceededError{RetryAfter: r.config.RetryAfter()}
	}
	return nil
}

func (r *Redis) key(identityID string) string {
	return r.prefix + ":" + identityID
}
