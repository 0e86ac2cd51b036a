package counters

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "bridgehub:counter:"

// boundedIncrScript adds ARGV[1] unless the value already exceeds the
// headroom ARGV[2] (limit minus delta). A key it creates expires after
// ARGV[3] milliseconds when that is positive. Returns {applied, value}.
var boundedIncrScript = redis.NewScript(`
local key = KEYS[1]
local cur = tonumber(redis.call('GET', key) or '0')
if cur > tonumber(ARGV[2]) then
  return {0, cur}
end
local v = redis.call('INCRBY', key, ARGV[1])
local ttl = tonumber(ARGV[3])
if ttl > 0 and redis.call('PTTL', key) == -1 then
  redis.call('PEXPIRE', key, ttl)
end
return {1, v}
`)

// Redis keeps counters as Redis integers shared by every hub instance.
// Redis integers are signed 64-bit, so counters saturate at math.MaxInt64
// with ErrOverflow instead of wrapping.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Increment(ctx context.Context, name string, delta uint64) (uint64, error) {
	if delta > math.MaxInt64 {
		return 0, fmt.Errorf("%w: delta %d", ErrOverflow, delta)
	}
	v, err := r.client.IncrBy(ctx, keyPrefix+name, int64(delta)).Result()
	if err != nil {
		// INCRBY refuses to wrap and leaves the value untouched.
		if isOverflowReply(err) {
			return 0, fmt.Errorf("%w: %s", ErrOverflow, name)
		}
		return 0, fmt.Errorf("increment counter %s: %w", name, err)
	}
	return uint64(v), nil
}

// IncrementWithin runs the check and the increment in one script, so hub
// instances sharing the key cannot both pass the limit.
func (r *Redis) IncrementWithin(ctx context.Context, name string, delta, limit uint64, ttl time.Duration) (uint64, error) {
	limit = min(limit, math.MaxInt64)
	if delta > limit {
		return 0, fmt.Errorf("%w: %s", ErrLimitExceeded, name)
	}
	raw, err := boundedIncrScript.Run(ctx, r.client, []string{keyPrefix + name},
		delta, limit-delta, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", name, err)
	}
	if len(raw) != 2 {
		return 0, fmt.Errorf("increment counter %s: unexpected script reply %v", name, raw)
	}
	if raw[0] == 0 {
		return uint64(raw[1]), fmt.Errorf("%w: %s at %d", ErrLimitExceeded, name, raw[1])
	}
	return uint64(raw[1]), nil
}

func (r *Redis) Get(ctx context.Context, name string) (uint64, error) {
	raw, err := r.client.Get(ctx, keyPrefix+name).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read counter %s: %w", name, err)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %s holds %q: %w", name, raw, err)
	}
	return v, nil
}

func isOverflowReply(err error) bool {
	var redisErr redis.Error
	return errors.As(err, &redisErr) && redisErr.Error() == "ERR increment or decrement would overflow"
}
