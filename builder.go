package goSession

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	internalmetrics "github.com/MrEthical07/goSession/internal/metrics"
	"github.com/MrEthical07/goSession/internal/security"
	"github.com/MrEthical07/goSession/internal/tiered"
	"github.com/MrEthical07/goSession/internal/tiers/memtier"
	"github.com/MrEthical07/goSession/internal/tiers/redistier"
	"github.com/MrEthical07/goSession/internal/tiers/sqltier"
	"github.com/MrEthical07/goSession/session"
)

// Builder assembles a [Manager]. Every dependency is optional: without Redis
// or a database the Manager runs on the process-local tier alone.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	db     *sql.DB

	logger    *slog.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New starts from [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Tier 1 client. The caller keeps ownership and must
// close it after [Manager.Close]. Build rejects cluster and ring clients.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRedisURL sets Config.Redis.URL. Build dials it with redis.ParseURL
// when no client was given, and the Manager closes that client on Close.
func (b *Builder) WithRedisURL(url string) *Builder {
	b.config.Redis.URL = url
	return b
}

// WithDB sets the Tier 2 database. The schema must already exist; see the
// migrate command of gosessiond.
func (b *Builder) WithDB(db *sql.DB) *Builder {
	b.db = db
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// The sink only receives events when Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the store and validate latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides the time source for record timestamps, expiry checks
// and sweeps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires the tier chain.
//
// A Tier 1 client that fails the production security checks does not fail
// Build: the tier is dropped from the chain, the failure is logged at error
// level, counted in [MetricTierDisabled], audited, and reported by
// [Manager.SecurityReport]. Build fails only for invalid configuration, an
// unparsable Redis URL, or a Redis client that is not a single-primary
// *redis.Client ([ErrUnsupportedRedisClient]).
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gosession")

	now := b.now
	if now == nil {
		now = time.Now
	}

	m := &Manager{
		config:  cfg,
		logger:  logger,
		now:     now,
		metrics: internalmetrics.New(internalmetrics.Config(cfg.Metrics)),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		policy: session.Policy{
			MaxAge:  cfg.Session.MaxAge,
			MaxIdle: cfg.Session.MaxIdle,
		},
	}

	client := b.redis
	if client != nil {
		if _, ok := client.(*redis.Client); !ok {
			m.audit.Close()
			return nil, fmt.Errorf("%w: got %T", ErrUnsupportedRedisClient, client)
		}
	}
	if client == nil && cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			m.audit.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opts)
		m.ownedRedis = client
	}

	var primaries []tiered.Backend
	if client != nil {
		m.redisConfigured = true
		if err := m.checkRedis(client); err != nil {
			m.disableRedis(err)
		} else {
			primaries = append(primaries, redistier.NewStore(client, redistier.Options{
				KeyPrefix:   cfg.Redis.KeyPrefix,
				IndexPrefix: cfg.Redis.IndexPrefix,
				TTL:         cfg.Session.Timeout(),
			}))
		}
	}

	if b.db != nil {
		applyPool(b.db, cfg.Database)
		m.sqlConfigured = true
		primaries = append(primaries, sqltier.New(b.db, sqltier.Options{
			Table: cfg.Database.Table,
			TTL:   cfg.Session.Timeout(),
			Now:   now,
		}))
	}

	m.memory = memtier.New(memtier.Options{
		TTL:    cfg.Session.Timeout(),
		Now:    now,
		Logger: logger.With("tier", "memory"),
	})

	m.chain = tiered.New(primaries, m.memory, tiered.Options{
		CallTimeout: cfg.Timeouts.BackendCall,
		Logger:      logger.With("subsystem", "tiered"),
		Observer:    chainObserver{m: m},
	})

	if cfg.Reaper.Enabled {
		r, err := newReaper(m, cfg.Reaper.Schedule)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.reaper = r
	}

	if len(primaries) == 0 {
		logger.Warn("no durable session tier configured; sessions live in process memory only")
	}
	logger.Info("session manager ready", "tiers", m.chain.Tiers())

	b.built = true
	return m, nil
}

func applyPool(db *sql.DB, cfg DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

// checkRedis applies the production-mode transport precondition.
func (m *Manager) checkRedis(client redis.UniversalClient) error {
	if !m.config.Security.ProductionMode {
		return nil
	}
	check, err := security.CheckRedis(redisTransport(client), m.config.Security.MinRedisPasswordLength)
	m.redisCheck = &check
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSecurityConfiguration, err)
	}
	return nil
}

func (m *Manager) disableRedis(err error) {
	m.redisDisabled = err
	m.logger.Error("redis tier disabled; continuing with remaining tiers", "error", err)
	m.metrics.Inc(MetricTierDisabled)
	m.emitAudit(context.Background(), auditEventTierDisabled, false, "", "", "redis", err, nil)
	if m.ownedRedis != nil {
		_ = m.ownedRedis.Close()
		m.ownedRedis = nil
	}
}

func redisTransport(client redis.UniversalClient) security.RedisTransport {
	switch c := client.(type) {
	case *redis.Client:
		o := c.Options()
		return security.RedisTransport{
			Username:    o.Username,
			Password:    o.Password,
			TLS:         o.TLSConfig != nil,
			Inspectable: true,
		}
	default:
		return security.RedisTransport{}
	}
}
