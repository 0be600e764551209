package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultOpTimeout = 500 * time.Millisecond

// KEYS[1] window set
// ARGV[1] now (ms)  ARGV[2] exclusive lower bound "(now-window"
// ARGV[3] window (ms)  ARGV[4] limit  ARGV[5] member
const slidingWindowScript = `
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[2])
if redis.call("ZCARD", KEYS[1]) < tonumber(ARGV[4]) then
  redis.call("ZADD", KEYS[1], ARGV[1], ARGV[5])
  redis.call("PEXPIRE", KEYS[1], ARGV[3])
  return 1
end
return 0
`

var slidingWindowLua = redis.NewScript(slidingWindowScript)

// SlidingWindow is a shared limiter whose prune, count and insert steps run as one Lua script.
type SlidingWindow struct {
	redis     redis.UniversalClient
	policy    Policy
	now       func() time.Time
	opTimeout time.Duration
}

// NewSlidingWindow returns a Redis-backed sliding-window limiter.
func NewSlidingWindow(policy Policy, client redis.UniversalClient, now func() time.Time) *SlidingWindow {
	if now == nil {
		now = time.Now
	}
	timeout := policy.OpTimeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &SlidingWindow{
		redis:     client,
		policy:    policy,
		now:       now,
		opTimeout: timeout,
	}
}

// Allow prunes events older than now-window and admits when fewer than Limit remain.
func (s *SlidingWindow) Allow(ctx context.Context, key string) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	nowMs := s.now().UnixMilli()
	windowMs := s.policy.Window.Milliseconds()
	// Members must be unique: two events in the same millisecond are still two events.
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()

	res, err := slidingWindowLua.Run(ctx, s.redis, []string{key},
		nowMs,
		"("+strconv.FormatInt(nowMs-windowMs, 10),
		windowMs,
		s.policy.Limit,
		member,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return res == 1, nil
}

// Policy returns the policy this limiter enforces.
func (s *SlidingWindow) Policy() Policy {
	return s.policy
}

// Close is a no-op; the Redis client is owned by the caller.
func (s *SlidingWindow) Close() error {
	return nil
}
