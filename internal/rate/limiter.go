package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend selects where a policy keeps its counters.
type Backend string

const (
	// BackendLocal keeps a per-process fixed-window counter per client address.
	BackendLocal Backend = "local"
	// BackendRedis keeps a shared sliding window in Redis.
	BackendRedis Backend = "redis"
)

// FailureMode decides the outcome when the limiter backend cannot answer.
type FailureMode string

const (
	// FailOpen admits the request when the backend fails.
	FailOpen FailureMode = "open"
	// FailClosed rejects the request when the backend fails.
	FailClosed FailureMode = "closed"
)

// Policy is the declared limit for one protected operation.
type Policy struct {
	Name        string        `yaml:"name"`
	Backend     Backend       `yaml:"backend"`
	Window      time.Duration `yaml:"window"`
	Limit       int           `yaml:"limit"`
	KeyPrefix   string        `yaml:"key_prefix"`
	FailureMode FailureMode   `yaml:"failure_mode"`

	// Local backend only.
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxEntries    int           `yaml:"max_entries"`

	// Redis backend only.
	OpTimeout time.Duration `yaml:"op_timeout"`
}

// Validate reports the first invalid field of p.
func (p Policy) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("rate policy name is required")
	}
	switch p.Backend {
	case BackendLocal, BackendRedis:
	default:
		return fmt.Errorf("rate policy %q: unknown backend %q", p.Name, p.Backend)
	}
	if p.Window <= 0 {
		return fmt.Errorf("rate policy %q: window must be > 0", p.Name)
	}
	if p.Limit <= 0 {
		return fmt.Errorf("rate policy %q: limit must be > 0", p.Name)
	}
	switch p.FailureMode {
	case FailOpen, FailClosed:
	default:
		return fmt.Errorf("rate policy %q: failure mode must be %q or %q", p.Name, FailOpen, FailClosed)
	}
	if p.MaxEntries < 0 || p.SweepInterval < 0 || p.OpTimeout < 0 {
		return fmt.Errorf("rate policy %q: negative tuning value", p.Name)
	}
	return nil
}

// Key builds the counter key for a request.
//
// Local counters are scoped to the limiter instance, so the client address alone is the key.
// Shared counters use keyPrefix:clientAddress:method:path.
func (p Policy) Key(clientAddr, method, path string) string {
	if p.Backend == BackendLocal {
		return clientAddr
	}
	prefix := p.KeyPrefix
	if prefix == "" {
		prefix = p.Name
	}
	return prefix + ":" + clientAddr + ":" + method + ":" + path
}

// Limiter is implemented by every backend.
type Limiter interface {
	// Allow records one event for key and reports whether it is admitted.
	// A non-nil error means the backend could not decide.
	Allow(ctx context.Context, key string) (bool, error)
	Policy() Policy
	Close() error
}

// New builds the backend selected by policy.Backend.
// now may be nil, in which case time.Now is used.
func New(policy Policy, client redis.UniversalClient, now func() time.Time) (Limiter, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}

	switch policy.Backend {
	case BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("rate policy %q: redis backend requires a client", policy.Name)
		}
		return NewSlidingWindow(policy, client, now), nil
	default:
		return NewFixedWindow(policy, now), nil
	}
}

// Enforce runs l for key and applies the policy's failure mode.
//
// It returns nil when the event is admitted and ErrRateLimited when it is rejected.
// When the backend fails, FailOpen admits with degraded=true and FailClosed returns
// an error wrapping ErrStoreUnavailable.
func Enforce(ctx context.Context, l Limiter, key string) (degraded bool, err error) {
	allowed, err := l.Allow(ctx, key)
	if err != nil {
		if l.Policy().FailureMode == FailOpen {
			return true, nil
		}
		if errors.Is(err, ErrStoreUnavailable) {
			return false, err
		}
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !allowed {
		return false, ErrRateLimited
	}
	return false, nil
}
