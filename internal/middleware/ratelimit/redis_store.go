package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// hitScript runs the whole check-increment-block sequence atomically.
// KEYS[1] counter, KEYS[2] block marker
// ARGV[1] max, ARGV[2] window ms, ARGV[3] block ms
// Returns {allowed, retryAfterMs, count}.
var hitScript = redis.NewScript(`
local blocked = redis.call('PTTL', KEYS[2])
if blocked > 0 then
  return {0, blocked, 0}
end
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
if count <= tonumber(ARGV[1]) then
  return {1, 0, count}
end
local block = tonumber(ARGV[3])
if block > 0 then
  redis.call('SET', KEYS[2], '1', 'PX', block)
  redis.call('DEL', KEYS[1])
  return {0, block, count}
end
return {0, redis.call('PTTL', KEYS[1]), count}
`)

// RedisStore shares counters between instances through Redis
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a store; keys are namespaced under prefix
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Hit records one request for key under policy
func (s *RedisStore) Hit(ctx context.Context, key string, p Policy) (Decision, error) {
	base := s.prefix + "ratelimit:" + key
	res, err := hitScript.Run(ctx, s.client,
		[]string{base + ":count", base + ":block"},
		p.Max, p.Window.Milliseconds(), p.Block.Milliseconds(),
	).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 3 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}

	allowed, _ := values[0].(int64)
	retryMs, _ := values[1].(int64)
	count, _ := values[2].(int64)

	return Decision{
		Allowed:    allowed == 1,
		Count:      int(count),
		RetryAfter: time.Duration(retryMs) * time.Millisecond,
	}, nil
}
