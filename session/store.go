package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable is returned when Redis cannot be reached or a call times out.
// It is never used to signal an absent key.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrNotFound is returned by Rotate when the old record no longer exists.
var ErrNotFound = errors.New("session record not found")

// ErrInvalidTTL is returned for a non-positive record lifetime.
var ErrInvalidTTL = errors.New("session ttl must be positive")

// DefaultPrefix is prepended to every token key.
const DefaultPrefix = "token:"

// DefaultOpTimeout bounds a single store round trip.
const DefaultOpTimeout = 500 * time.Millisecond

// rotateScript swaps the old record for the new one in one step, so no caller
// observes both or neither. It writes nothing when the old record is already
// gone, which leaves exactly one winner among concurrent refreshes.
const rotateScript = `
if redis.call("DEL", KEYS[1]) == 0 then
  return 0
end
redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[2])
return 1
`

var rotateLua = redis.NewScript(rotateScript)

// Store is the authoritative record of which issued tokens are still valid.
//
// Each record is keyed by the token string and expires natively in Redis.
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	opTimeout time.Duration
}

// NewStore returns a Store using prefix for keys and opTimeout per call.
// Zero values fall back to DefaultPrefix and DefaultOpTimeout.
func NewStore(redis redis.UniversalClient, prefix string, opTimeout time.Duration) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}
	return &Store{
		redis:     redis,
		prefix:    prefix,
		opTimeout: opTimeout,
	}
}

func (s *Store) key(token string) string {
	return s.prefix + token
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// Put records token with the given marker value and ttl.
func (s *Store) Put(ctx context.Context, token, marker string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if marker == "" {
		marker = "1"
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.redis.Set(ctx, s.key(token), marker, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Exists reports whether token still has a live record.
// A missing key is (false, nil); only transport failures return an error.
func (s *Store) Exists(ctx context.Context, token string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.redis.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n == 1, nil
}

// Delete removes the record for token. Deleting an absent record is not an error.
func (s *Store) Delete(ctx context.Context, token string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.redis.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Rotate atomically replaces oldToken's record with one for newToken.
// It returns ErrNotFound, writing nothing, when oldToken has no record.
func (s *Store) Rotate(ctx context.Context, oldToken, newToken, marker string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if marker == "" {
		marker = "1"
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	swapped, err := rotateLua.Run(ctx, s.redis, []string{s.key(oldToken), s.key(newToken)}, marker, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if swapped == 0 {
		return ErrNotFound
	}
	return nil
}

// TTL returns the remaining lifetime of token's record, or 0 when absent.
func (s *Store) TTL(ctx context.Context, token string) (time.Duration, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	d, err := s.redis.PTTL(ctx, s.key(token)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

// Ping checks connectivity and returns the observed round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
