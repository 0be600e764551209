package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goGate/jwt"
)

// RouteClass mirrors the root route classes without importing the root package.
type RouteClass int

const (
	RouteRequiresAuth RouteClass = iota
	RoutePublic
	RouteReadFallback
)

// Outcome is the terminal state of an authorization decision.
type Outcome int

const (
	OutcomeDeny Outcome = iota
	OutcomeAllowAnonymous
	OutcomeAllowAuthenticated
)

// FailureKind classifies why a token did not resolve to an identity.
// On read-fallback routes a failure is recorded but the outcome is still anonymous.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureTokenMissing
	FailureTokenMalformed
	FailureTokenNotInStore
	FailureTokenSignature
	FailureTokenExpired
	FailureMissingIdentity
	FailureStoreUnavailable
)

// AuthorizeResult carries the decision and, when authenticated, the verified claims.
type AuthorizeResult struct {
	Outcome  Outcome
	Failure  FailureKind
	Err      error
	Claims   *jwt.Claims
	Degraded bool
}

// AuthorizeDeps captures authorization dependencies.
type AuthorizeDeps struct {
	WellFormed           func(string) bool
	Verify               func(string) (*jwt.Claims, error)
	Exists               func(context.Context, string) (bool, error)
	DenyReadOnStoreError bool
	TokenExpired         error
}

// RunAuthorize decides one request for the given route class and raw token.
//
// Token-bearing paths check shape first, then store presence, then the signature.
// A malformed token never reaches the store.
func RunAuthorize(ctx context.Context, class RouteClass, token string, deps AuthorizeDeps) AuthorizeResult {
	switch class {
	case RoutePublic:
		return AuthorizeResult{Outcome: OutcomeAllowAnonymous}

	case RouteReadFallback:
		if token == "" {
			return AuthorizeResult{Outcome: OutcomeAllowAnonymous}
		}
		res := resolveToken(ctx, token, deps)
		if res.Failure == FailureNone {
			return res
		}
		if res.Failure == FailureStoreUnavailable {
			if deps.DenyReadOnStoreError {
				return res
			}
			return AuthorizeResult{Outcome: OutcomeAllowAnonymous, Failure: res.Failure, Err: res.Err, Degraded: true}
		}
		return AuthorizeResult{Outcome: OutcomeAllowAnonymous, Failure: res.Failure, Err: res.Err}

	default:
		if token == "" {
			return AuthorizeResult{Outcome: OutcomeDeny, Failure: FailureTokenMissing}
		}
		return resolveToken(ctx, token, deps)
	}
}

func resolveToken(ctx context.Context, token string, deps AuthorizeDeps) AuthorizeResult {
	if !deps.WellFormed(token) {
		return AuthorizeResult{Outcome: OutcomeDeny, Failure: FailureTokenMalformed}
	}

	ok, err := deps.Exists(ctx, token)
	if err != nil {
		return AuthorizeResult{Outcome: OutcomeDeny, Failure: FailureStoreUnavailable, Err: err}
	}
	if !ok {
		return AuthorizeResult{Outcome: OutcomeDeny, Failure: FailureTokenNotInStore}
	}

	claims, err := deps.Verify(token)
	if err != nil {
		if deps.TokenExpired != nil && errors.Is(err, deps.TokenExpired) {
			return AuthorizeResult{Outcome: OutcomeDeny, Failure: FailureTokenExpired, Err: err}
		}
		return AuthorizeResult{Outcome: OutcomeDeny, Failure: FailureTokenSignature, Err: err}
	}
	if claims.UserID() == "" {
		return AuthorizeResult{Outcome: OutcomeDeny, Failure: FailureMissingIdentity}
	}

	return AuthorizeResult{Outcome: OutcomeAllowAuthenticated, Claims: claims}
}
