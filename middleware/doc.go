// Package middleware adapts goGate.Gate to net/http.
//
// # Middleware
//
//   - [ClientIP] resolves the caller address and stores it in the request context.
//   - [Authorize] classifies the route, runs the gate, and owns the request's
//     RequestContext.
//   - [RateLimit] charges the request against one named limiter policy.
//   - [RequireIdentity] turns a read-fallback route into a mandatory one for a
//     single handler.
//
// Every middleware has the func(http.Handler) http.Handler shape, so it
// mounts directly on a chi router with Use or With.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Gate calls. It does NOT make
// authorization decisions itself; those are delegated to Gate.Authorize and
// Gate.Allow.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Access Redis.
//   - Leak a RequestContext past the end of its request.
package middleware
