package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	goSession "github.com/MrEthical07/goSession"
)

var configPath string

type daemonConfig struct {
	Server   serverConfig   `mapstructure:"server"`
	Logger   loggerConfig   `mapstructure:"logger"`
	Session  sessionConfig  `mapstructure:"session"`
	Redis    redisConfig    `mapstructure:"redis"`
	Database databaseConfig `mapstructure:"database"`
	Timeouts timeoutsConfig `mapstructure:"timeouts"`
	Reaper   reaperConfig   `mapstructure:"reaper"`
	Audit    auditConfig    `mapstructure:"audit"`
	Metrics  metricsConfig  `mapstructure:"metrics"`
	Security securityConfig `mapstructure:"security"`
}

type serverConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type loggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Debug  bool   `mapstructure:"debug"`
}

type sessionConfig struct {
	MaxSessionsPerUser int           `mapstructure:"max_sessions_per_user"`
	TimeoutHours       int           `mapstructure:"timeout_hours"`
	MaxAge             time.Duration `mapstructure:"max_age"`
	MaxIdle            time.Duration `mapstructure:"max_idle"`
}

type redisConfig struct {
	URL         string `mapstructure:"url"`
	KeyPrefix   string `mapstructure:"key_prefix"`
	IndexPrefix string `mapstructure:"index_prefix"`
}

type databaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type timeoutsConfig struct {
	BackendCall time.Duration `mapstructure:"backend_call"`
}

type reaperConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

type auditConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	BufferSize int    `mapstructure:"buffer_size"`
	DropIfFull bool   `mapstructure:"drop_if_full"`
	Path       string `mapstructure:"path"`
}

type metricsConfig struct {
	Enabled                 bool `mapstructure:"enabled"`
	EnableLatencyHistograms bool `mapstructure:"enable_latency_histograms"`
}

type securityConfig struct {
	ProductionMode         bool `mapstructure:"production_mode"`
	MinRedisPasswordLength int  `mapstructure:"min_redis_password_length"`
}

// loadConfig reads the YAML file at path (or the first gosession.yaml found
// in ./configs, ../configs or /etc/gosession) and applies GOSESSION_*
// environment overrides. A missing file is not an error when path is empty.
func loadConfig(path string) (*daemonConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GOSESSION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gosession")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("/etc/gosession")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg daemonConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := goSession.DefaultConfig()

	v.SetDefault("server.addr", ":8090")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("logger.debug", false)

	v.SetDefault("session.max_sessions_per_user", def.Session.MaxSessionsPerUser)
	v.SetDefault("session.timeout_hours", def.Session.TimeoutHours)
	v.SetDefault("session.max_age", def.Session.MaxAge)
	v.SetDefault("session.max_idle", def.Session.MaxIdle)

	v.SetDefault("redis.url", def.Redis.URL)
	v.SetDefault("redis.key_prefix", def.Redis.KeyPrefix)
	v.SetDefault("redis.index_prefix", def.Redis.IndexPrefix)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.table", def.Database.Table)
	v.SetDefault("database.max_open_conns", def.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", def.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", def.Database.ConnMaxLifetime)

	v.SetDefault("timeouts.backend_call", def.Timeouts.BackendCall)

	v.SetDefault("reaper.enabled", def.Reaper.Enabled)
	v.SetDefault("reaper.schedule", def.Reaper.Schedule)

	v.SetDefault("audit.enabled", def.Audit.Enabled)
	v.SetDefault("audit.buffer_size", def.Audit.BufferSize)
	v.SetDefault("audit.drop_if_full", def.Audit.DropIfFull)
	v.SetDefault("audit.path", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.enable_latency_histograms", true)

	v.SetDefault("security.production_mode", def.Security.ProductionMode)
	v.SetDefault("security.min_redis_password_length", def.Security.MinRedisPasswordLength)
}

// sessionConfig maps the daemon file onto the library configuration.
func (c *daemonConfig) sessionConfig() goSession.Config {
	cfg := goSession.DefaultConfig()

	cfg.Session.MaxSessionsPerUser = c.Session.MaxSessionsPerUser
	cfg.Session.TimeoutHours = c.Session.TimeoutHours
	cfg.Session.MaxAge = c.Session.MaxAge
	cfg.Session.MaxIdle = c.Session.MaxIdle

	cfg.Redis.URL = c.Redis.URL
	cfg.Redis.KeyPrefix = c.Redis.KeyPrefix
	cfg.Redis.IndexPrefix = c.Redis.IndexPrefix

	cfg.Database.Table = c.Database.Table
	cfg.Database.MaxOpenConns = c.Database.MaxOpenConns
	cfg.Database.MaxIdleConns = c.Database.MaxIdleConns
	cfg.Database.ConnMaxLifetime = c.Database.ConnMaxLifetime

	cfg.Timeouts.BackendCall = c.Timeouts.BackendCall
	cfg.Reaper.Enabled = c.Reaper.Enabled
	cfg.Reaper.Schedule = c.Reaper.Schedule

	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Audit.BufferSize = c.Audit.BufferSize
	cfg.Audit.DropIfFull = c.Audit.DropIfFull

	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.EnableLatencyHistograms

	cfg.Security.ProductionMode = c.Security.ProductionMode
	cfg.Security.MinRedisPasswordLength = c.Security.MinRedisPasswordLength
	return cfg
}

func parseSeverity(s string) (goSession.LintSeverity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return goSession.LintInfo, nil
	case "warn", "warning":
		return goSession.LintWarn, nil
	case "high", "":
		return goSession.LintHigh, nil
	default:
		return 0, fmt.Errorf("unknown severity %q", s)
	}
}
