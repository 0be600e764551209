package goGate

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goGate/internal/rate"
	"github.com/MrEthical07/goGate/jwt"
)

// Config defines a public type used by goGate APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT     JWTConfig     `yaml:"jwt"`
	Store   StoreConfig   `yaml:"store"`
	Routes  RoutePolicy   `yaml:"routes"`
	Limits  []LimitPolicy `yaml:"limits"`
	Token   TokenConfig   `yaml:"token"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the signing secret and lifetime classes.
//
// Secret has no default. Build fails when it is empty or shorter than
// jwt.MinSecretLength.
type JWTConfig struct {
	Secret             string        `yaml:"secret"`
	Issuer             string        `yaml:"issuer"`
	ShortLifetime      time.Duration `yaml:"short_lifetime"`
	LongLifetime       time.Duration `yaml:"long_lifetime"`
	ExpiringSoonWindow time.Duration `yaml:"expiring_soon_window"`
	Leeway             time.Duration `yaml:"leeway"`
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig controls the Redis token store.
type StoreConfig struct {
	Prefix    string        `yaml:"prefix"`
	OpTimeout time.Duration `yaml:"op_timeout"`
	// ReadFallbackOnStoreError is "anonymous" (degrade) or "deny" (503) for
	// read-fallback routes when the store cannot be reached.
	ReadFallbackOnStoreError string `yaml:"read_fallback_on_store_error"`
}

const (
	// StoreErrorAnonymous degrades read-fallback routes to anonymous on store errors.
	StoreErrorAnonymous = "anonymous"
	// StoreErrorDeny rejects read-fallback routes with a store error envelope.
	StoreErrorDeny = "deny"
)

/*
====================================
TOKEN TRANSPORT CONFIG
====================================
*/

// TokenConfig describes how the token travels on the request.
type TokenConfig struct {
	Header string `yaml:"header"`
	// ExpiringSoonHeader is set to "true" on responses whose token is close to expiry.
	// Empty disables the header.
	ExpiringSoonHeader string `yaml:"expiring_soon_header"`
}

// LimitPolicy is a named rate-limit declaration attached to routes by the middleware.
type LimitPolicy = rate.Policy

// Limiter backends and failure modes, re-exported for configuration.
const (
	BackendLocal = rate.BackendLocal
	BackendRedis = rate.BackendRedis
	FailOpen     = rate.FailOpen
	FailClosed   = rate.FailClosed
)

// AuditConfig defines a public type used by goGate APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig defines a public type used by goGate APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// Default limiter policy names.
const (
	LimitAuthLocal     = "auth_local"
	LimitAuth          = "auth"
	LimitArticleSearch = "article_search"
)

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			ShortLifetime:      jwt.DefaultShortLifetime,
			LongLifetime:       jwt.DefaultLongLifetime,
			ExpiringSoonWindow: jwt.DefaultExpiringSoonWindow,
		},
		Store: StoreConfig{
			Prefix:                   "token:",
			OpTimeout:                500 * time.Millisecond,
			ReadFallbackOnStoreError: StoreErrorAnonymous,
		},
		Routes: DefaultRoutePolicy(),
		Limits: []LimitPolicy{
			{
				Name:          LimitAuthLocal,
				Backend:       rate.BackendLocal,
				Window:        60 * time.Second,
				Limit:         5,
				KeyPrefix:     LimitAuthLocal,
				FailureMode:   rate.FailClosed,
				SweepInterval: time.Minute,
				MaxEntries:    100_000,
			},
			{
				Name:        LimitAuth,
				Backend:     rate.BackendRedis,
				Window:      60 * time.Second,
				Limit:       20,
				KeyPrefix:   "rate_limit:auth",
				FailureMode: rate.FailClosed,
				OpTimeout:   500 * time.Millisecond,
			},
			{
				Name:        LimitArticleSearch,
				Backend:     rate.BackendRedis,
				Window:      60 * time.Second,
				Limit:       100,
				KeyPrefix:   "rate_limit:article_search",
				FailureMode: rate.FailOpen,
				OpTimeout:   500 * time.Millisecond,
			},
		},
		Token: TokenConfig{
			Header:             "Authorization",
			ExpiringSoonHeader: "X-Token-Expiring-Soon",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// DefaultConfig returns the baseline configuration: 2h/7d lifetimes, the
// default route table, and the auth_local, auth and article_search limiters.
// The JWT secret is left empty and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Limits = append([]LimitPolicy(nil), cfg.Limits...)
	out.Routes = cfg.Routes.clone()
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate returns an error wrapping ErrConfig for the first invalid field.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) == 0 {
		return fmt.Errorf("%w: JWT secret is required", ErrConfig)
	}
	if len(c.JWT.Secret) < jwt.MinSecretLength {
		return fmt.Errorf("%w: JWT secret must be at least %d characters", ErrConfig, jwt.MinSecretLength)
	}
	if c.JWT.ShortLifetime <= 0 || c.JWT.LongLifetime <= 0 {
		return fmt.Errorf("%w: JWT lifetimes must be > 0", ErrConfig)
	}
	if c.JWT.LongLifetime < c.JWT.ShortLifetime {
		return fmt.Errorf("%w: JWT LongLifetime must be >= ShortLifetime", ErrConfig)
	}
	if c.JWT.ExpiringSoonWindow < 0 {
		return fmt.Errorf("%w: JWT ExpiringSoonWindow must be >= 0", ErrConfig)
	}

	if c.Store.OpTimeout <= 0 {
		return fmt.Errorf("%w: Store OpTimeout must be > 0", ErrConfig)
	}
	switch c.Store.ReadFallbackOnStoreError {
	case StoreErrorAnonymous, StoreErrorDeny:
	default:
		return fmt.Errorf("%w: Store ReadFallbackOnStoreError must be %q or %q", ErrConfig, StoreErrorAnonymous, StoreErrorDeny)
	}

	if strings.TrimSpace(c.Token.Header) == "" {
		return fmt.Errorf("%w: Token Header is required", ErrConfig)
	}

	if err := c.Routes.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}

	seen := make(map[string]struct{}, len(c.Limits))
	for _, p := range c.Limits {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrConfig, err)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w: duplicate rate policy %q", ErrConfig, p.Name)
		}
		seen[p.Name] = struct{}{}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return fmt.Errorf("%w: Audit BufferSize must be > 0 when audit is enabled", ErrConfig)
	}

	return nil
}
