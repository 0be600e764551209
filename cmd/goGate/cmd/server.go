package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/internal/blog"
	"github.com/MrEthical07/goGate/internal/config"
	otelexport "github.com/MrEthical07/goGate/metrics/export/otel"
	promexport "github.com/MrEthical07/goGate/metrics/export/prometheus"
)

const meterName = "github.com/MrEthical07/goGate"

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the demo blog API behind the gate",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.ConfigPath(cmd.Flags()), cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return runServer(cmd.Context(), cfg, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	config.RegisterFlags(serverCmd.Flags())
}

// app is everything the server owns between startup and shutdown.
type app struct {
	handler http.Handler
	gate    *goGate.Gate
	otel    *otelexport.OTelExporter
	log     zerolog.Logger

	closeOnce sync.Once
}

func (a *app) Close() {
	a.closeOnce.Do(func() {
		if a.otel != nil {
			_ = a.otel.Close()
		}
		a.gate.Close()
	})
}

// newApp wires the gate, the blog API and the metrics endpoints. Logs and
// JSON audit events share out, so it is wrapped once for both.
func newApp(cfg *config.Config, out io.Writer, rdb redis.UniversalClient) (*app, error) {
	out = zerolog.SyncWriter(out)
	logger := cfg.Logger(out)

	builder := goGate.New().
		WithConfig(cfg.Config).
		WithRedis(rdb).
		WithLogger(logger)
	if cfg.Audit.Enabled {
		builder = builder.WithAuditSink(auditSink(cfg.Log.AuditFormat, logger, out))
	}

	gate, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build gate: %w", err)
	}

	exporter, err := otelexport.NewOTelExporter(otel.GetMeterProvider().Meter(meterName), gate)
	if err != nil {
		gate.Close()
		return nil, fmt.Errorf("register otel metrics: %w", err)
	}

	api := blog.New(gate,
		blog.WithLogger(logger),
		blog.WithTrustForwarded(cfg.Server.TrustForwardedHeaders),
	)

	var r chi.Router = api.Router()
	r.Method(http.MethodGet, "/metrics", promexport.NewPrometheusExporter(gate).Handler())

	return &app{handler: r, gate: gate, otel: exporter, log: logger}, nil
}

func auditSink(format string, logger zerolog.Logger, out io.Writer) goGate.AuditSink {
	if format == config.AuditFormatJSON {
		return goGate.NewJSONWriterSink(out)
	}
	return goGate.NewLogSink(logger)
}

func runServer(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	a, err := newApp(cfg, logOut, rdb)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.log

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable at startup; store-backed routes will degrade")
	}
	cancel()

	server := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           a.handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	done := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			done <- fmt.Errorf("server failed: %w", err)
			return
		}
		done <- nil
	}()

	logger.Info().
		Str("listen", cfg.Server.Listen).
		Str("redis", cfg.Redis.Addr).
		Str("route_policy", cfg.Routes.Version).
		Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-done:
		return err
	}
}
