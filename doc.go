// Package goGate is the request gating layer of a blog backend: it decides,
// before any handler runs, whether a request is admitted, admitted
// anonymously, or rejected.
//
// A [Gate] combines a JWT token service, a Redis-backed token store that makes
// every token revocable, named rate limiters (process-local fixed window or
// Redis sliding window), and a versioned route table. Gate methods are safe to
// call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// goGate is the public surface. It exposes [Gate], [Builder], [Config], the
// [RequestContext] cell, and value types ([Decision], [SessionToken],
// [MetricsSnapshot]). Flow orchestration, limiter backends, and audit
// dispatch live under internal/ and are never exported. HTTP glue lives in
// the middleware package.
//
// # What this package must NOT do
//
//   - Treat an unreachable store as an invalid token.
//   - Consult the store for a malformed token.
//   - Keep identity in global or goroutine-local state.
//   - Import any sub-package that re-imports goGate (no import cycles).
//
// # Performance contract
//
// Authorize on a public route does no I/O. On a token-bearing route it makes
// one store round-trip. Refresh is one EXISTS and one atomic rotate.
package goGate
