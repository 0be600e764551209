package goGate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MrEthical07/goGate/internal/rate"
)

// Allow charges one event against the named limiter for the client, method
// and path.
//
// It returns nil when admitted, ErrRateLimited when rejected, and an error
// wrapping ErrLimiterUnavailable when a fail-closed limiter cannot reach its
// backend. A fail-open limiter whose backend errored admits the event.
// Unknown policy names return ErrUnknownLimiter.
func (g *Gate) Allow(ctx context.Context, policy, clientAddr, method, path string) error {
	if g == nil {
		return ErrGateNotReady
	}
	l, ok := g.limiters[policy]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLimiter, policy)
	}

	key := l.Policy().Key(clientAddr, method, path)
	degraded, err := rate.Enforce(ctx, l, key)
	switch {
	case err == nil:
		if degraded {
			g.metricInc(MetricRateLimitFailOpen)
			g.log.Warn().Str("policy", policy).Msg("rate limiter backend unavailable, admitting request")
		}
		return nil

	case errors.Is(err, ErrRateLimited):
		g.metricInc(MetricRateLimited)
		g.log.Info().
			Str("policy", policy).
			Str("client", clientAddr).
			Str("method", method).
			Str("path", path).
			Msg("rate limit exceeded")
		g.emitRateLimit(ctx, policy, method, path, err)
		return err

	default:
		g.metricInc(MetricRateLimitUnavailable)
		g.log.Error().Err(err).Str("policy", policy).Msg("rate limiter backend unavailable, rejecting request")
		g.emitRateLimit(ctx, policy, method, path, err)
		return err
	}
}

// LimitWindow returns the window of the named policy, used for Retry-After.
func (g *Gate) LimitWindow(policy string) (time.Duration, bool) {
	if g == nil {
		return 0, false
	}
	l, ok := g.limiters[policy]
	if !ok {
		return 0, false
	}
	return l.Policy().Window, true
}

// LimitPolicies returns the configured policy names in sorted order.
func (g *Gate) LimitPolicies() []string {
	if g == nil {
		return nil
	}
	names := make([]string, 0, len(g.limiters))
	for name := range g.limiters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
