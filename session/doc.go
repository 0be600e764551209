// Package session provides the Redis-backed token store that decides whether an
// issued token is still valid server-side.
//
// # Records
//
// Each issued token maps to one key (<prefix><token>) whose TTL equals the token's
// lifetime class. Logout, password change and refresh delete the key; refresh swaps
// old for new in a single Lua script.
//
// # Failure semantics
//
// Transport errors and per-call timeouts wrap [ErrStoreUnavailable]. An absent key is
// reported as (false, nil), never as an error, so callers can tell "revoked" from
// "store down".
//
// # What this package must NOT do
//
//   - Import goGate or jwt (no upward imports).
//   - Interpret token contents or make authorization decisions.
package session
