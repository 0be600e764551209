package goGate

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventSessionIssued    = "session_issued"
	auditEventSessionRefreshed = "session_refreshed"
	auditEventSessionLogout    = "session_logout"
	auditEventSessionRevoked   = "session_revoked"
	auditEventAuthorizeDenied  = "authorize_denied"
	auditEventRateLimited      = "rate_limited"
)

// AuditErrorCode is the stable, text-free error classification written to
// AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrUnauthorized     AuditErrorCode = "unauthorized"
	auditErrTokenMissing     AuditErrorCode = "token_missing"
	auditErrTokenMalformed   AuditErrorCode = "token_malformed"
	auditErrTokenInvalid     AuditErrorCode = "token_invalid"
	auditErrTokenExpired     AuditErrorCode = "token_expired"
	auditErrTokenNotInStore  AuditErrorCode = "token_not_in_store"
	auditErrRateLimited      AuditErrorCode = "rate_limited"
	auditErrLimiterBackend   AuditErrorCode = "limiter_unavailable"
	auditErrStoreUnavailable AuditErrorCode = "store_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (g *Gate) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	tokenID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if g == nil || g.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: g.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		TokenID:   tokenID,
		IP:        ClientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if metadata != nil {
		event.Method = metadata["method"]
		event.Path = metadata["path"]
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	g.audit.Emit(ctx, event)
}

func (g *Gate) emitRateLimit(ctx context.Context, policy, method, path string, err error) {
	g.emitAudit(ctx, auditEventRateLimited, false, "", "", err, func() map[string]string {
		return map[string]string{
			"policy": policy,
			"method": method,
			"path":   path,
		}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrLimiterUnavailable):
		return auditErrLimiterBackend
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrStoreUnavailable
	case errors.Is(err, ErrTokenMissing):
		return auditErrTokenMissing
	case errors.Is(err, ErrTokenMalformed):
		return auditErrTokenMalformed
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenNotInStore):
		return auditErrTokenNotInStore
	case errors.Is(err, ErrTokenSignatureInvalid), errors.Is(err, ErrTokenInvalid):
		return auditErrTokenInvalid
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	default:
		return auditErrInternal
	}
}

func defaultNow() time.Time {
	return time.Now()
}
