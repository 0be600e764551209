package internaldefs

import (
	goGate "github.com/MrEthical07/goGate"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in MetricID order.
var CounterDefs = []CounterDef{
	{ID: goGate.MetricAllowAnonymous, Name: "gogate_allow_anonymous_total", Help: "Requests admitted without an identity."},
	{ID: goGate.MetricAllowAuthenticated, Name: "gogate_allow_authenticated_total", Help: "Requests admitted with a verified identity."},
	{ID: goGate.MetricDeny, Name: "gogate_deny_total", Help: "Requests rejected before the handler ran."},
	{ID: goGate.MetricTokenMissing, Name: "gogate_token_missing_total", Help: "Protected requests without a token."},
	{ID: goGate.MetricTokenMalformed, Name: "gogate_token_malformed_total", Help: "Tokens rejected for shape before any store access."},
	{ID: goGate.MetricTokenNotInStore, Name: "gogate_token_not_in_store_total", Help: "Tokens absent from the store (revoked or expired)."},
	{ID: goGate.MetricTokenInvalid, Name: "gogate_token_invalid_total", Help: "Tokens failing signature verification."},
	{ID: goGate.MetricTokenExpired, Name: "gogate_token_expired_total", Help: "Correctly signed tokens past their expiry."},
	{ID: goGate.MetricStoreUnavailable, Name: "gogate_store_unavailable_total", Help: "Token store failures surfaced to the caller."},
	{ID: goGate.MetricStoreDegraded, Name: "gogate_store_degraded_total", Help: "Read requests served anonymously because the store was unreachable."},
	{ID: goGate.MetricRateLimited, Name: "gogate_rate_limited_total", Help: "Requests rejected by a rate limiter."},
	{ID: goGate.MetricRateLimitFailOpen, Name: "gogate_rate_limit_fail_open_total", Help: "Requests admitted by a fail-open limiter whose backend failed."},
	{ID: goGate.MetricRateLimitUnavailable, Name: "gogate_rate_limit_unavailable_total", Help: "Requests rejected by a fail-closed limiter whose backend failed."},
	{ID: goGate.MetricSessionIssued, Name: "gogate_session_issued_total", Help: "Tokens issued and recorded."},
	{ID: goGate.MetricSessionRefreshed, Name: "gogate_session_refreshed_total", Help: "Tokens rotated by refresh."},
	{ID: goGate.MetricSessionLogout, Name: "gogate_session_logout_total", Help: "Logout operations."},
	{ID: goGate.MetricSessionRevoked, Name: "gogate_session_revoked_total", Help: "Tokens revoked after a credential change."},
}

// HistogramDefs lists the exported histograms.
var HistogramDefs = []HistogramDef{
	{ID: goGate.MetricAuthorizeLatency, Name: "gogate_authorize_latency_seconds", Help: "Authorize latency histogram."},
}

// HistogramBounds are the Prometheus "le" labels of the eight latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is the metric-name-safe form of HistogramBounds, used
// for per-bucket OTel gauges.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling
// missing entries and dropping extras.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
