package goGate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goGate/internal/audit"
	"github.com/MrEthical07/goGate/internal/flows"
	"github.com/MrEthical07/goGate/internal/rate"
	"github.com/MrEthical07/goGate/jwt"
	"github.com/MrEthical07/goGate/session"
	"github.com/rs/zerolog"
)

// Gate defines a public type used by goGate APIs.
//
// Gate instances are built once by [Builder.Build] and are safe for
// concurrent use by request goroutines.
type Gate struct {
	config     Config
	jwtManager *jwt.Manager
	store      *session.Store
	limiters   map[string]rate.Limiter
	flow       flows.Service
	audit      *audit.Dispatcher
	metrics    *Metrics
	log        zerolog.Logger
	now        func() time.Time
}

// Close stops the local limiter sweepers and drains the audit dispatcher.
// The Redis client is owned by the caller and is not closed.
func (g *Gate) Close() {
	if g == nil {
		return
	}
	for name, l := range g.limiters {
		if err := l.Close(); err != nil {
			g.log.Warn().Err(err).Str("policy", name).Msg("limiter close failed")
		}
	}
	if g.audit != nil {
		g.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (g *Gate) AuditDropped() uint64 {
	if g == nil || g.audit == nil {
		return 0
	}
	return g.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot returns empty maps on a nil Gate or when metrics are disabled.
func (g *Gate) MetricsSnapshot() MetricsSnapshot {
	if g == nil || g.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return g.metrics.Snapshot()
}

// Config returns a copy of the configuration the gate was built with.
func (g *Gate) Config() Config {
	if g == nil {
		return Config{}
	}
	return cloneConfig(g.config)
}

// Logger returns the gate's logger, for middleware that logs on its behalf.
func (g *Gate) Logger() zerolog.Logger {
	if g == nil {
		return zerolog.Nop()
	}
	return g.log
}

func (g *Gate) metricInc(id MetricID) {
	if g == nil || g.metrics == nil {
		return
	}
	g.metrics.Inc(id)
}

// ExtractToken cleans a raw header value: surrounding whitespace is trimmed,
// embedded CR, LF and TAB are removed, and a leading "Bearer " is stripped.
func ExtractToken(header string) string {
	token := strings.TrimSpace(header)
	if strings.ContainsAny(token, "\r\n\t") {
		token = strings.Map(func(r rune) rune {
			switch r {
			case '\r', '\n', '\t':
				return -1
			}
			return r
		}, token)
	}
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

// Classify returns the route class for method and path under the configured table.
func (g *Gate) Classify(method, path string) RouteClass {
	return g.config.Routes.Classify(method, path)
}

// Authorize decides whether a request may reach its handler.
//
// Public routes always allow anonymously and never touch the store.
// Read-fallback routes authenticate a live token and otherwise allow
// anonymously. Every other route requires a token that is well formed, live
// in the store, and correctly signed, checked in that order. A store failure
// is reported as ErrStoreUnavailable and never as an invalid token.
func (g *Gate) Authorize(ctx context.Context, req AuthorizeRequest) Decision {
	if g == nil || !g.flow.Initialized() {
		return Decision{Outcome: Deny, Err: ErrGateNotReady}
	}
	if g.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { g.metrics.Observe(MetricAuthorizeLatency, time.Since(start)) }()
	}

	class := g.Classify(req.Method, req.Path)
	token := ExtractToken(req.Token)

	res := g.flow.Authorize(ctx, class.flowClass(), token)
	decision := Decision{
		Class:    class,
		Err:      mapAuthorizeFailure(res),
		Degraded: res.Degraded,
	}

	switch res.Outcome {
	case flows.OutcomeAllowAuthenticated:
		decision.Outcome = AllowAuthenticated
		decision.Identity = identityFromClaims(res.Claims, token)
		decision.ExpiringSoon = g.jwtManager.ExpiringSoon(res.Claims)
		g.metricInc(MetricAllowAuthenticated)

	case flows.OutcomeAllowAnonymous:
		decision.Outcome = AllowAnonymous
		g.metricInc(MetricAllowAnonymous)
		if res.Degraded {
			g.metricInc(MetricStoreDegraded)
			g.log.Warn().
				Err(res.Err).
				Str("method", req.Method).
				Str("path", req.Path).
				Msg("token store unavailable, serving read route anonymously")
		} else if res.Failure != flows.FailureNone {
			g.metricFailure(res.Failure)
			g.log.Debug().
				Err(decision.Err).
				Str("path", req.Path).
				Msg("token ignored on read route")
		}

	default:
		decision.Outcome = Deny
		g.metricInc(MetricDeny)
		g.metricFailure(res.Failure)
		if res.Failure == flows.FailureStoreUnavailable {
			g.log.Error().Err(res.Err).Str("path", req.Path).Msg("token store unavailable")
		}
		g.emitAudit(ctx, auditEventAuthorizeDenied, false, "", "", decision.Err, func() map[string]string {
			return map[string]string{
				"method": req.Method,
				"path":   req.Path,
				"class":  string(class),
			}
		})
	}

	return decision
}

// ExpiringSoon reports whether the identity's token is within the configured
// window of its expiry.
func (g *Gate) ExpiringSoon(id Identity) bool {
	if g == nil || g.jwtManager == nil || id.ExpiresAt.IsZero() {
		return false
	}
	return g.jwtManager.ExpiringSoon(&jwt.Claims{ExpiresAt: id.ExpiresAt})
}

// Ping reports the token store round-trip time.
func (g *Gate) Ping(ctx context.Context) (time.Duration, error) {
	if g == nil || g.store == nil {
		return 0, ErrGateNotReady
	}
	return g.store.Ping(ctx)
}

func (g *Gate) metricFailure(kind flows.FailureKind) {
	switch kind {
	case flows.FailureTokenMissing:
		g.metricInc(MetricTokenMissing)
	case flows.FailureTokenMalformed:
		g.metricInc(MetricTokenMalformed)
	case flows.FailureTokenNotInStore:
		g.metricInc(MetricTokenNotInStore)
	case flows.FailureTokenSignature, flows.FailureMissingIdentity:
		g.metricInc(MetricTokenInvalid)
	case flows.FailureTokenExpired:
		g.metricInc(MetricTokenExpired)
	case flows.FailureStoreUnavailable:
		g.metricInc(MetricStoreUnavailable)
	}
}

func mapAuthorizeFailure(res flows.AuthorizeResult) error {
	switch res.Failure {
	case flows.FailureNone:
		return nil
	case flows.FailureTokenMissing:
		return ErrTokenMissing
	case flows.FailureTokenMalformed:
		return ErrTokenMalformed
	case flows.FailureTokenNotInStore:
		return ErrTokenNotInStore
	case flows.FailureTokenExpired:
		return ErrTokenExpired
	case flows.FailureTokenSignature:
		return ErrTokenSignatureInvalid
	case flows.FailureStoreUnavailable:
		if res.Err != nil && errors.Is(res.Err, ErrStoreUnavailable) {
			return res.Err
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
	default:
		return ErrUnauthorized
	}
}

func identityFromClaims(c *jwt.Claims, token string) Identity {
	if c == nil {
		return Identity{}
	}
	claims := make(map[string]any, len(c.Identity))
	for k, v := range c.Identity {
		claims[k] = v
	}
	return Identity{
		UserID:     c.UserID(),
		Username:   c.Username(),
		Claims:     claims,
		RememberMe: c.RememberMe,
		TokenID:    c.ID,
		ExpiresAt:  c.ExpiresAt,
		Token:      token,
	}
}
