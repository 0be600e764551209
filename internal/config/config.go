// Package config loads the demo server configuration.
//
// Values are layered in this order, later layers winning: built-in defaults,
// the YAML file named by --config or GOGATE_CONFIG, environment variables,
// and finally command-line flags that were set explicitly.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	configEnvVar        = "GOGATE_CONFIG"
	secretEnvVar        = "GOGATE_JWT_SECRET"
	legacySecretEnvVar  = "JWT_SECRET"
	redisAddrEnvVar     = "GOGATE_REDIS_ADDR"
	redisPasswordEnvVar = "GOGATE_REDIS_PASSWORD"
	listenEnvVar        = "GOGATE_LISTEN"
	logLevelEnvVar      = "GOGATE_LOG_LEVEL"
	auditFormatEnvVar   = "GOGATE_AUDIT_FORMAT"
)

// Audit output formats for LogConfig.AuditFormat.
const (
	// AuditFormatLog writes audit events as zerolog lines tagged component=audit.
	AuditFormatLog = "log"
	// AuditFormatJSON writes each audit event as a bare JSON object per line.
	AuditFormatJSON = "json"
)

// Config is the full server configuration. The gate settings sit inline at
// the top level, so the secret lives under jwt.secret.
type Config struct {
	goGate.Config `yaml:",inline"`

	Server ServerConfig `yaml:"server"`
	Redis  RedisConfig  `yaml:"redis"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Listen string `yaml:"listen"`
	// TrustForwardedHeaders resolves client addresses from X-Forwarded-For
	// and friends. Disable it unless a proxy overwrites those headers.
	TrustForwardedHeaders bool          `yaml:"trust_forwarded_headers"`
	ReadHeaderTimeout     time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout       time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig configures the shared Redis client.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig configures the server logger.
type LogConfig struct {
	Level string `yaml:"level"`
	// Pretty switches to zerolog's console writer.
	Pretty bool `yaml:"pretty"`
	// AuditFormat selects how audit events reach the log output when
	// audit.enabled is set: "log" (default) or "json".
	AuditFormat string `yaml:"audit_format"`
}

// Default returns the configuration used before any file, env or flag.
func Default() *Config {
	return &Config{
		Config: goGate.DefaultConfig(),
		Server: ServerConfig{
			Listen:                ":8080",
			TrustForwardedHeaders: true,
			ReadHeaderTimeout:     10 * time.Second,
			ShutdownTimeout:       10 * time.Second,
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		Log: LogConfig{
			Level:       "info",
			AuditFormat: AuditFormatLog,
		},
	}
}

// Load builds the configuration from path (or GOGATE_CONFIG when path is
// empty), the environment, and the changed flags of fs. A nil fs skips the
// flag layer. No file at all is fine; a named file that cannot be read is not.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(configEnvVar)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if fs != nil {
		if err := cfg.applyFlags(fs); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	secret := GetEnv(secretEnvVar, GetEnv(legacySecretEnvVar, ""))
	if secret != "" {
		c.JWT.Secret = secret
	}
	c.Redis.Addr = GetEnv(redisAddrEnvVar, c.Redis.Addr)
	c.Redis.Password = GetEnv(redisPasswordEnvVar, c.Redis.Password)
	c.Server.Listen = GetEnv(listenEnvVar, c.Server.Listen)
	c.Log.Level = GetEnv(logLevelEnvVar, c.Log.Level)
	c.Log.AuditFormat = GetEnv(auditFormatEnvVar, c.Log.AuditFormat)
}

// Validate checks the server settings and the embedded gate config.
// Gate errors wrap goGate.ErrConfig.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Listen) == "" {
		return errors.New("server.listen is required")
	}
	if strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("redis.addr is required")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.AuditFormat {
	case "", AuditFormatLog, AuditFormatJSON:
	default:
		return fmt.Errorf("log.audit_format: unknown format %q", c.Log.AuditFormat)
	}
	return c.Config.Validate()
}

// Logger returns a zerolog logger at the configured level.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	// The access log and the audit dispatcher write from different goroutines.
	w = zerolog.SyncWriter(w)
	if c.Log.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// GetEnv returns the value of envVar, or defaultValue when it is unset or empty.
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
