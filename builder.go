package goGate

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goGate/internal/audit"
	"github.com/MrEthical07/goGate/internal/flows"
	"github.com/MrEthical07/goGate/internal/rate"
	"github.com/MrEthical07/goGate/jwt"
	"github.com/MrEthical07/goGate/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder defines a public type used by goGate APIs.
//
// A Builder is single use: Build may succeed at most once.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	auditSink AuditSink
	logger    zerolog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig replaces the whole configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSecret sets the JWT signing secret.
func (b *Builder) WithSecret(secret string) *Builder {
	b.config.JWT.Secret = secret
	return b
}

// WithRedis sets the client for the token store and the shared limiters.
// Any go-redis client works: single node, cluster, or failover.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the logger. The default discards everything.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// Setting a sink does not enable auditing; Config.Audit.Enabled does.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the authorize latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides the time source used for token timestamps and
// rate-limit windows. Tests use it to step time.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires the gate.
//
// Build fails with an error wrapping ErrConfig on a missing or weak secret,
// an invalid route table, or an invalid limiter policy. A Redis client is
// always required since the token store lives there.
func (b *Builder) Build() (*Gate, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, fmt.Errorf("%w: redis client required", ErrConfig)
	}

	now := b.now
	if now == nil {
		now = defaultNow
	}

	// -------- TOKEN SERVICE --------
	jm, err := jwt.NewManager(jwt.Config{
		Secret:             []byte(cfg.JWT.Secret),
		Issuer:             cfg.JWT.Issuer,
		ShortLifetime:      cfg.JWT.ShortLifetime,
		LongLifetime:       cfg.JWT.LongLifetime,
		ExpiringSoonWindow: cfg.JWT.ExpiringSoonWindow,
		Leeway:             cfg.JWT.Leeway,
		Now:                now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	// -------- SESSION STORE --------
	store := session.NewStore(b.redis, cfg.Store.Prefix, cfg.Store.OpTimeout)

	// -------- RATE LIMITERS --------
	limiters := make(map[string]rate.Limiter, len(cfg.Limits))
	for _, p := range cfg.Limits {
		l, err := rate.New(p, b.redis, now)
		if err != nil {
			for _, built := range limiters {
				_ = built.Close()
			}
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		limiters[p.Name] = l
	}

	gate := &Gate{
		config:     cfg,
		jwtManager: jm,
		store:      store,
		limiters:   limiters,
		metrics:    NewMetrics(cfg.Metrics),
		log:        b.logger.With().Str("component", "gogate").Logger(),
		now:        now,
	}

	gate.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	gate.flow = flows.New(flows.Deps{
		Authorize: flows.AuthorizeDeps{
			WellFormed:           jwt.WellFormed,
			Verify:               jm.Verify,
			Exists:               store.Exists,
			DenyReadOnStoreError: cfg.Store.ReadFallbackOnStoreError == StoreErrorDeny,
			TokenExpired:         jwt.ErrTokenExpired,
		},
		Session: flows.SessionDeps{
			Issue:      jm.Issue,
			Verify:     jm.Verify,
			Refresh:    jm.Refresh,
			Lifetime:   jm.Lifetime,
			WellFormed: jwt.WellFormed,
			Store:      store,
			RotateLost: session.ErrNotFound,
		},
	})

	gate.log.Info().
		Str("routes_version", cfg.Routes.Version).
		Int("limiters", len(limiters)).
		Bool("audit", cfg.Audit.Enabled).
		Msg("gate built")

	b.built = true

	return gate, nil
}
