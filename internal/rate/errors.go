package rate

import "errors"

var (
	// ErrRateLimited is returned by Enforce when a policy rejects an event.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps backend failures: Redis errors, timeouts, a full local table.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
	// ErrCapacityExceeded is returned by the local backend when its table is full of live entries.
	ErrCapacityExceeded = errors.New("local rate limiter capacity exceeded")
)
