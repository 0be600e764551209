package config

import (
	"github.com/spf13/pflag"
)

// Flag names shared by the server and load-test commands.
const (
	FlagConfig    = "config"
	FlagListen    = "listen"
	FlagRedisAddr = "redis-addr"
	FlagLogLevel  = "log-level"
	FlagTrustXFF  = "trust-forwarded"
	FlagAudit     = "audit-format"
)

// RegisterFlags adds the configuration flags to fs. Defaults are left empty
// so an unset flag never masks a value from the file or the environment.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP(FlagConfig, "c", "", "path to a YAML config file (env "+configEnvVar+")")
	fs.String(FlagListen, "", "listen address, e.g. :8080 (env "+listenEnvVar+")")
	fs.String(FlagRedisAddr, "", "Redis address host:port (env "+redisAddrEnvVar+")")
	fs.String(FlagLogLevel, "", "log level: debug, info, warn, error (env "+logLevelEnvVar+")")
	fs.String(FlagAudit, "", "audit output: log or json (env "+auditFormatEnvVar+")")
	fs.Bool(FlagTrustXFF, true, "resolve client addresses from forwarded headers")
}

// ConfigPath returns the --config value of fs, or "" when it is not registered.
func ConfigPath(fs *pflag.FlagSet) string {
	if fs == nil || fs.Lookup(FlagConfig) == nil {
		return ""
	}
	path, _ := fs.GetString(FlagConfig)
	return path
}

func (c *Config) applyFlags(fs *pflag.FlagSet) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{FlagListen, &c.Server.Listen},
		{FlagRedisAddr, &c.Redis.Addr},
		{FlagLogLevel, &c.Log.Level},
		{FlagAudit, &c.Log.AuditFormat},
	}
	for _, s := range strs {
		if !fs.Changed(s.name) {
			continue
		}
		v, err := fs.GetString(s.name)
		if err != nil {
			return err
		}
		*s.dst = v
	}

	if fs.Changed(FlagTrustXFF) {
		v, err := fs.GetBool(FlagTrustXFF)
		if err != nil {
			return err
		}
		c.Server.TrustForwardedHeaders = v
	}
	return nil
}
