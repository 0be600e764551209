// Package rate implements the request limiters behind one [Limiter] interface.
//
// # Backends
//
//   - [FixedWindow] (local): per-process counter per client address. The
//     window resets once now-windowStart exceeds Window. Idle entries are swept
//     and the table is bounded by MaxEntries.
//   - [SlidingWindow] (redis): a sorted set of event timestamps per
//     keyPrefix:clientAddress:method:path. Prune, count, insert and PEXPIRE run
//     in one Lua script, so concurrent callers can never exceed Limit.
//
// # Failure mode
//
// [Enforce] applies the policy's FailureMode when the backend cannot decide:
// "open" admits, "closed" rejects with [ErrStoreUnavailable].
//
// # What this package must NOT do
//
//   - Resolve client addresses or read HTTP requests (middleware does that).
//   - Be imported outside the goGate module.
package rate
