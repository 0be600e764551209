package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goGate/jwt"
)

// SessionFailureKind classifies issue/refresh/logout failures for root-level mapping.
type SessionFailureKind int

const (
	SessionFailureNone SessionFailureKind = iota
	SessionFailureTokenMissing
	SessionFailureTokenMalformed
	SessionFailureNotInStore
	SessionFailureInvalid
	SessionFailureIssue
	SessionFailureStore
)

// SessionResult carries the minted token or failure metadata.
type SessionResult struct {
	Failure SessionFailureKind
	Err     error
	Token   string
	Claims  *jwt.Claims
}

// SessionStore is the subset of the token store used by lifecycle flows.
type SessionStore interface {
	Put(ctx context.Context, token, marker string, ttl time.Duration) error
	Exists(ctx context.Context, token string) (bool, error)
	Delete(ctx context.Context, token string) error
	Rotate(ctx context.Context, oldToken, newToken, marker string, ttl time.Duration) error
}

// SessionDeps captures issue, refresh and logout dependencies.
type SessionDeps struct {
	Issue      func(map[string]any, bool) (string, error)
	Verify     func(string) (*jwt.Claims, error)
	Refresh    func(string) (string, *jwt.Claims, error)
	Lifetime   func(bool) time.Duration
	WellFormed func(string) bool
	Store      SessionStore
	// RotateLost is the error Store.Rotate returns when the old record
	// vanished between the existence check and the swap.
	RotateLost error
}

// RunIssue mints a token and records it with TTL equal to its lifetime class.
// The token is not returned unless the store write succeeded.
func RunIssue(ctx context.Context, identity map[string]any, rememberMe bool, deps SessionDeps) SessionResult {
	token, err := deps.Issue(identity, rememberMe)
	if err != nil {
		return SessionResult{Failure: SessionFailureIssue, Err: err}
	}
	claims, err := deps.Verify(token)
	if err != nil {
		return SessionResult{Failure: SessionFailureIssue, Err: err}
	}

	if err := deps.Store.Put(ctx, token, claims.UserID(), deps.Lifetime(rememberMe)); err != nil {
		return SessionResult{Failure: SessionFailureStore, Err: err}
	}
	return SessionResult{Token: token, Claims: claims}
}

// RunRefresh requires oldToken to be live in the store and to verify, then swaps
// the old record for a new token of the same lifetime class.
func RunRefresh(ctx context.Context, oldToken string, deps SessionDeps) SessionResult {
	if oldToken == "" {
		return SessionResult{Failure: SessionFailureTokenMissing}
	}
	if !deps.WellFormed(oldToken) {
		return SessionResult{Failure: SessionFailureTokenMalformed}
	}

	ok, err := deps.Store.Exists(ctx, oldToken)
	if err != nil {
		return SessionResult{Failure: SessionFailureStore, Err: err}
	}
	if !ok {
		return SessionResult{Failure: SessionFailureNotInStore}
	}

	next, claims, err := deps.Refresh(oldToken)
	if err != nil {
		return SessionResult{Failure: SessionFailureInvalid, Err: err}
	}

	if err := deps.Store.Rotate(ctx, oldToken, next, claims.UserID(), deps.Lifetime(claims.RememberMe)); err != nil {
		if deps.RotateLost != nil && errors.Is(err, deps.RotateLost) {
			return SessionResult{Failure: SessionFailureNotInStore}
		}
		return SessionResult{Failure: SessionFailureStore, Err: err}
	}
	return SessionResult{Token: next, Claims: claims}
}

// RunLogout deletes the token's record. Unknown or already-deleted tokens succeed.
func RunLogout(ctx context.Context, token string, deps SessionDeps) SessionResult {
	if token == "" {
		return SessionResult{Failure: SessionFailureTokenMissing}
	}
	if err := deps.Store.Delete(ctx, token); err != nil {
		return SessionResult{Failure: SessionFailureStore, Err: err}
	}
	return SessionResult{}
}
