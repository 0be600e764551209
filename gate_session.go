package goGate

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goGate/internal/flows"
)

// IssueSession mints a token for identity and records it in the store with a
// TTL equal to its lifetime class. This is the login step.
//
// identity must carry a non-empty "id" claim. When the store write fails the
// token is not returned and the error wraps ErrStoreUnavailable.
func (g *Gate) IssueSession(ctx context.Context, identity map[string]any, rememberMe bool) (SessionToken, error) {
	if g == nil || !g.flow.Initialized() {
		return SessionToken{}, ErrGateNotReady
	}
	if id := identity["id"]; id == nil || fmt.Sprint(id) == "" {
		return SessionToken{}, fmt.Errorf("%w: identity requires an id claim", ErrUnauthorized)
	}

	res := g.flow.Issue(ctx, identity, rememberMe)
	if res.Failure != flows.SessionFailureNone {
		err := mapSessionFailure(res)
		g.logSessionFailure("issue", err)
		g.emitAudit(ctx, auditEventSessionIssued, false, fmt.Sprint(identity["id"]), "", err, nil)
		return SessionToken{}, err
	}

	g.metricInc(MetricSessionIssued)
	g.emitAudit(ctx, auditEventSessionIssued, true, res.Claims.UserID(), res.Claims.ID, nil, func() map[string]string {
		return map[string]string{"remember_me": fmt.Sprint(rememberMe)}
	})

	return SessionToken{
		Token:      res.Token,
		RememberMe: res.Claims.RememberMe,
		ExpiresAt:  res.Claims.ExpiresAt,
	}, nil
}

// Refresh exchanges a live token for a new one of the same lifetime class.
//
// The old token must be present in the store (else ErrTokenNotInStore) and
// must verify (else ErrTokenInvalid). The old record is removed and the new
// one written in a single store operation.
func (g *Gate) Refresh(ctx context.Context, oldToken string) (SessionToken, error) {
	if g == nil || !g.flow.Initialized() {
		return SessionToken{}, ErrGateNotReady
	}

	res := g.flow.Refresh(ctx, ExtractToken(oldToken))
	if res.Failure != flows.SessionFailureNone {
		err := mapSessionFailure(res)
		g.logSessionFailure("refresh", err)
		g.emitAudit(ctx, auditEventSessionRefreshed, false, "", "", err, nil)
		return SessionToken{}, err
	}

	g.metricInc(MetricSessionRefreshed)
	g.emitAudit(ctx, auditEventSessionRefreshed, true, res.Claims.UserID(), res.Claims.ID, nil, nil)

	return SessionToken{
		Token:      res.Token,
		RememberMe: res.Claims.RememberMe,
		ExpiresAt:  res.Claims.ExpiresAt,
	}, nil
}

// Logout deletes the token's store record. Deleting an unknown or already
// deleted token succeeds.
func (g *Gate) Logout(ctx context.Context, token string) error {
	return g.dropToken(ctx, token, auditEventSessionLogout, MetricSessionLogout)
}

// Revoke deletes the token's store record after a credential change. It has
// the same store effect as Logout and is audited separately.
func (g *Gate) Revoke(ctx context.Context, token string) error {
	return g.dropToken(ctx, token, auditEventSessionRevoked, MetricSessionRevoked)
}

func (g *Gate) dropToken(ctx context.Context, token, event string, metric MetricID) error {
	if g == nil || !g.flow.Initialized() {
		return ErrGateNotReady
	}

	token = ExtractToken(token)
	userID := ""
	if id, ok := IdentityFromContext(ctx); ok && id.Token == token {
		userID = id.UserID
	}

	res := g.flow.Logout(ctx, token)
	if res.Failure != flows.SessionFailureNone {
		err := mapSessionFailure(res)
		g.logSessionFailure(event, err)
		g.emitAudit(ctx, event, false, userID, "", err, nil)
		return err
	}

	g.metricInc(metric)
	g.emitAudit(ctx, event, true, userID, "", nil, nil)
	return nil
}

func (g *Gate) logSessionFailure(op string, err error) {
	if errors.Is(err, ErrStoreUnavailable) {
		g.metricInc(MetricStoreUnavailable)
		g.log.Error().Err(err).Str("op", op).Msg("session store operation failed")
		return
	}
	g.log.Debug().Err(err).Str("op", op).Msg("session operation rejected")
}

func mapSessionFailure(res flows.SessionResult) error {
	switch res.Failure {
	case flows.SessionFailureNone:
		return nil
	case flows.SessionFailureTokenMissing:
		return ErrTokenMissing
	case flows.SessionFailureTokenMalformed:
		return ErrTokenMalformed
	case flows.SessionFailureNotInStore:
		return ErrTokenNotInStore
	case flows.SessionFailureInvalid:
		if res.Err != nil && errors.Is(res.Err, ErrTokenInvalid) {
			return res.Err
		}
		return ErrTokenInvalid
	case flows.SessionFailureStore:
		if res.Err != nil && errors.Is(res.Err, ErrStoreUnavailable) {
			return res.Err
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
	default:
		if res.Err != nil {
			return res.Err
		}
		return ErrUnauthorized
	}
}
