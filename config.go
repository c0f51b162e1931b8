package goSession

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config is the complete session store configuration. Build a starting
// point with [DefaultConfig] or [HighSecurityConfig], adjust fields, then
// pass it to [Builder.WithConfig].
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Session  SessionConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Timeouts TimeoutConfig
	Reaper   ReaperConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Security SecurityConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifetime and the per-user cap.
type SessionConfig struct {
	// MaxSessionsPerUser caps concurrent sessions per user. Zero disables
	// enforcement.
	MaxSessionsPerUser int
	// TimeoutHours is the storage TTL applied by every tier.
	TimeoutHours int
	// MaxAge bounds now - CreatedAt during validation.
	MaxAge time.Duration
	// MaxIdle bounds now - LastAccessed during validation.
	MaxIdle time.Duration
}

// Timeout is the storage TTL as a duration.
func (s SessionConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutHours) * time.Hour
}

/*
====================================
BACKEND CONFIG
====================================
*/

// RedisConfig configures Tier 1.
type RedisConfig struct {
	// URL is parsed with redis.ParseURL when the builder is given no client.
	URL         string
	KeyPrefix   string
	IndexPrefix string
}

// DatabaseConfig configures Tier 2. Build applies the non-zero pool limits
// to the *sql.DB given to [Builder.WithDB]; zero leaves the pool as is.
type DatabaseConfig struct {
	Table           string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// TimeoutConfig bounds every call into Tier 1 and Tier 2.
type TimeoutConfig struct {
	BackendCall time.Duration
}

// ReaperConfig schedules periodic expired-session cleanup.
type ReaperConfig struct {
	Enabled bool
	// Schedule is a standard cron expression or descriptor such as "@every 15m".
	Schedule string
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds transport security requirements.
type SecurityConfig struct {
	// ProductionMode makes Tier 1 require authentication, TLS and a strong
	// password. A Tier 1 that fails the check is disabled, not fatal.
	ProductionMode         bool
	MinRedisPasswordLength int
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			MaxSessionsPerUser: 5,
			TimeoutHours:       24,
			MaxAge:             24 * time.Hour,
			MaxIdle:            2 * time.Hour,
		},
		Redis: RedisConfig{
			KeyPrefix:   "session:",
			IndexPrefix: "user_sessions:",
		},
		Database: DatabaseConfig{
			Table:           "sessions",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Timeouts: TimeoutConfig{
			BackendCall: 500 * time.Millisecond,
		},
		Reaper: ReaperConfig{
			Enabled:  true,
			Schedule: "@every 15m",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode:         false,
			MinRedisPasswordLength: 16,
		},
	}
}

// DefaultConfig returns the development-friendly baseline: five sessions per
// user, 24h lifetime, 2h idle window, 500ms backend budget.
func DefaultConfig() Config {
	return defaultConfig()
}

// HighSecurityConfig returns a production preset: production mode on,
// three sessions per user, an 8h absolute lifetime, a 30m idle window,
// auditing and metrics enabled.
func HighSecurityConfig() Config {
	cfg := defaultConfig()
	cfg.Session.MaxSessionsPerUser = 3
	cfg.Session.TimeoutHours = 8
	cfg.Session.MaxAge = 8 * time.Hour
	cfg.Session.MaxIdle = 30 * time.Minute
	cfg.Timeouts.BackendCall = 250 * time.Millisecond
	cfg.Reaper.Schedule = "@every 5m"
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	cfg.Security.ProductionMode = true
	cfg.Security.MinRedisPasswordLength = 24
	return cfg
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}(\.[A-Za-z_][A-Za-z0-9_]{0,62})?$`)

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Session
	if c.Session.MaxSessionsPerUser < 0 {
		return errors.New("Session MaxSessionsPerUser must be >= 0")
	}
	if c.Session.TimeoutHours <= 0 {
		return errors.New("Session TimeoutHours must be > 0")
	}
	if c.Session.MaxAge <= 0 {
		return errors.New("Session MaxAge must be > 0")
	}
	if c.Session.MaxIdle <= 0 {
		return errors.New("Session MaxIdle must be > 0")
	}
	if c.Session.MaxIdle > c.Session.MaxAge {
		return errors.New("Session MaxIdle must be <= MaxAge")
	}

	// Redis
	if strings.TrimSpace(c.Redis.KeyPrefix) == "" {
		return errors.New("Redis KeyPrefix must not be empty")
	}
	if strings.TrimSpace(c.Redis.IndexPrefix) == "" {
		return errors.New("Redis IndexPrefix must not be empty")
	}
	if c.Redis.KeyPrefix == c.Redis.IndexPrefix {
		return errors.New("Redis KeyPrefix and IndexPrefix must differ")
	}
	if c.Redis.URL != "" &&
		!strings.HasPrefix(c.Redis.URL, "redis://") &&
		!strings.HasPrefix(c.Redis.URL, "rediss://") &&
		!strings.HasPrefix(c.Redis.URL, "unix://") {
		return errors.New("Redis URL must use redis://, rediss:// or unix://")
	}

	// Database
	if !tableNamePattern.MatchString(c.Database.Table) {
		return fmt.Errorf("Database Table %q is not a valid identifier", c.Database.Table)
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return errors.New("Database connection pool sizes must be >= 0")
	}
	if c.Database.ConnMaxLifetime < 0 {
		return errors.New("Database ConnMaxLifetime must be >= 0")
	}

	// Timeouts
	if c.Timeouts.BackendCall <= 0 {
		return errors.New("Timeouts BackendCall must be > 0")
	}
	if c.Timeouts.BackendCall > time.Minute {
		return errors.New("Timeouts BackendCall must be <= 1m")
	}

	// Reaper
	if c.Reaper.Enabled {
		if _, err := cron.ParseStandard(c.Reaper.Schedule); err != nil {
			return fmt.Errorf("Reaper Schedule is invalid: %w", err)
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Security
	if c.Security.MinRedisPasswordLength < 0 {
		return errors.New("Security MinRedisPasswordLength must be >= 0")
	}
	if c.Security.ProductionMode {
		if c.Security.MinRedisPasswordLength < 16 {
			return errors.New("ProductionMode requires MinRedisPasswordLength >= 16")
		}
		if c.Session.MaxSessionsPerUser == 0 {
			return errors.New("ProductionMode requires MaxSessionsPerUser > 0")
		}
	}

	return nil
}
