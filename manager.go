package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	internalmetrics "github.com/MrEthical07/goSession/internal/metrics"
	"github.com/MrEthical07/goSession/internal/security"
	"github.com/MrEthical07/goSession/internal/tiered"
	"github.com/MrEthical07/goSession/internal/tiers/memtier"
	"github.com/MrEthical07/goSession/session"
)

// Manager is the session lifecycle store. It is safe for concurrent use
// after [Builder.Build].
//
// Writes go to the highest-priority healthy tier and the per-user cap is
// enforced there. Reads fall through tiers in order. Deletes, bulk
// invalidation and cleanup reach every tier.
type Manager struct {
	config Config
	chain  *tiered.Chain
	memory *memtier.Store
	reaper *Reaper

	ownedRedis      redis.UniversalClient
	redisConfigured bool
	redisCheck      *security.RedisCheck
	redisDisabled   error
	sqlConfigured   bool

	audit   *internalaudit.Dispatcher
	metrics *internalmetrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
	policy  session.Policy

	closed    atomic.Bool
	closeOnce sync.Once
}

func (m *Manager) ready() error {
	if m == nil || m.chain == nil || m.closed.Load() {
		return ErrManagerNotReady
	}
	return nil
}

// StoreSession persists rec under sessionID and enforces the per-user cap on
// the tier that accepted the write. The caller generates sessionID. rec is
// not retained; timestamps are normalized to millisecond precision and a
// zero CreatedAt is stamped with the current time.
//
// StoreSession only fails for invalid input or a record that cannot be
// encoded: the process-local tier accepts every write the durable tiers
// refuse.
func (m *Manager) StoreSession(ctx context.Context, sessionID string, rec *Record) error {
	if err := m.ready(); err != nil {
		return err
	}
	if m.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { m.metrics.Observe(MetricStoreLatency, time.Since(start)) }()
	}
	if err := session.CheckInput(sessionID, rec); err != nil {
		return err
	}

	r := rec.Clone()
	r.Normalize(m.now())
	uid := r.UserID.String()

	res, err := m.chain.Store(ctx, sessionID, r, m.config.Session.MaxSessionsPerUser)
	if err != nil {
		m.emitAudit(ctx, auditEventSessionCreated, false, uid, sessionID, "", err, nil)
		return fmt.Errorf("store session: %w", err)
	}

	m.metrics.Inc(MetricSessionStored)
	if res.Fallback {
		m.metrics.Inc(MetricSessionStoredFallback)
		m.emitAudit(ctx, auditEventTierFallback, true, uid, sessionID, res.Tier, nil, nil)
	}
	m.emitAudit(ctx, auditEventSessionCreated, true, uid, sessionID, res.Tier, nil, nil)

	if n := len(res.Evicted); n > 0 {
		m.metrics.Add(MetricSessionEvicted, uint64(n))
		m.logger.Info("session limit enforced", "user_id", uid, "tier", res.Tier, "evicted", n)
		for _, id := range res.Evicted {
			m.emitAudit(ctx, auditEventSessionEvicted, true, uid, id, res.Tier, nil, func() map[string]string {
				return map[string]string{"limit": fmt.Sprint(m.config.Session.MaxSessionsPerUser)}
			})
		}
	}
	return nil
}

// CreateSession builds a record for userID stamped with the current time and
// the client IP and user agent carried by ctx, stores it, and returns it.
func (m *Manager) CreateSession(ctx context.Context, sessionID string, userID uuid.UUID) (*Record, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	rec := session.New(userID, clientIPFromContext(ctx), userAgentFromContext(ctx), m.now())
	if err := m.StoreSession(ctx, sessionID, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetSession returns the record from the highest-priority tier that holds
// it. Unreachable tiers and corrupt records are skipped. It returns
// [ErrSessionNotFound] when no tier has the session.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*Record, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	rec, _, err := m.chain.Get(ctx, sessionID)
	if err != nil {
		m.metrics.Inc(MetricSessionLookupMiss)
		return nil, err
	}
	m.metrics.Inc(MetricSessionLookupHit)
	return rec, nil
}

// TouchSession refreshes the last-access time of sessionID on the first
// tier that holds it.
func (m *Manager) TouchSession(ctx context.Context, sessionID string) error {
	if err := m.ready(); err != nil {
		return err
	}
	if sessionID == "" {
		return ErrSessionNotFound
	}
	_, err := m.chain.Touch(ctx, sessionID, m.now())
	return err
}

// ValidateSession is the auth-check path: it loads the session, applies the
// age and idle limits, reports device changes, and refreshes last access.
//
// Every failure is either [ErrSessionNotFound] or [ErrAuthenticationExpired];
// render both as a generic "please log in again". Expired sessions are
// deleted best-effort. A changed IP address or user agent is logged, counted
// and audited but does not fail validation.
func (m *Manager) ValidateSession(ctx context.Context, sessionID string) (*Record, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if m.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { m.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	rec, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	obs := session.Observation{
		IPAddress: clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
	}
	uid := rec.UserID.String()

	verdict, err := session.Validate(rec, obs, now, m.policy)
	if err != nil {
		m.metrics.Inc(MetricSessionExpired)
		m.emitAudit(ctx, auditEventSessionExpired, true, uid, sessionID, "", err, func() map[string]string {
			return map[string]string{"reason": verdict.Expired.String()}
		})
		if derr := m.chain.Delete(ctx, sessionID); derr != nil && !errors.Is(derr, ErrSessionNotFound) {
			m.logger.Warn("expired session cleanup failed", "user_id", uid, "error", derr)
		}
		return nil, err
	}

	if verdict.DeviceMismatch() {
		if verdict.IPMismatch {
			m.metrics.Inc(MetricDeviceIPMismatch)
		}
		if verdict.UserAgentMismatch {
			m.metrics.Inc(MetricDeviceUAMismatch)
		}
		m.logger.Warn("session used from a different device",
			"user_id", uid,
			"ip_changed", verdict.IPMismatch,
			"user_agent_changed", verdict.UserAgentMismatch,
		)
		m.emitAudit(ctx, auditEventDeviceMismatch, true, uid, sessionID, "", nil, func() map[string]string {
			return map[string]string{
				"ip_changed":         fmt.Sprint(verdict.IPMismatch),
				"user_agent_changed": fmt.Sprint(verdict.UserAgentMismatch),
			}
		})
	}

	if _, err := m.chain.Touch(ctx, sessionID, now); err != nil {
		m.logger.Warn("session touch failed", "user_id", uid, "error", err)
	}
	rec.Touch(now)
	return rec, nil
}

// DeleteSession removes sessionID from every tier (logout). It returns
// [ErrSessionNotFound] when no tier held it; callers that treat logout as
// idempotent may ignore that error.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	if err := m.ready(); err != nil {
		return err
	}
	if sessionID == "" {
		return ErrSessionNotFound
	}
	if err := m.chain.Delete(ctx, sessionID); err != nil {
		return err
	}
	m.metrics.Inc(MetricSessionDeleted)
	m.emitAudit(ctx, auditEventSessionDeleted, true, "", sessionID, "", nil, nil)
	return nil
}

// InvalidateUserSessions removes every session of userID from every tier
// (logout-everywhere, password change, admin action). The count is the sum of
// per-tier removals and is meant for audit logs: a session present in two
// tiers counts twice.
func (m *Manager) InvalidateUserSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	if err := m.ready(); err != nil {
		return 0, err
	}
	if userID == uuid.Nil {
		return 0, fmt.Errorf("%w: nil user id", ErrInvalidRecord)
	}

	n, err := m.chain.InvalidateUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	uid := userID.String()
	if n > 0 {
		m.metrics.Add(MetricSessionInvalidated, uint64(n))
	}
	m.logger.Info("user sessions invalidated", "user_id", uid, "removed", n)
	m.emitAudit(ctx, auditEventSessionsInvalidated, true, uid, "", "", nil, func() map[string]string {
		return map[string]string{"removed": fmt.Sprint(n)}
	})
	return n, nil
}

// CleanupExpiredSessions removes expired records from the tiers that lack
// native expiry and returns how many were removed.
func (m *Manager) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	if err := m.ready(); err != nil {
		return 0, err
	}
	n, err := m.chain.Sweep(ctx, m.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.metrics.Add(MetricSessionSwept, uint64(n))
		m.emitAudit(ctx, auditEventSessionsSwept, true, "", "", "", nil, func() map[string]string {
			return map[string]string{"removed": fmt.Sprint(n)}
		})
	}
	return n, nil
}

// ActiveSessionCount sums the live sessions of userID across reachable tiers.
func (m *Manager) ActiveSessionCount(ctx context.Context, userID uuid.UUID) (int, error) {
	if err := m.ready(); err != nil {
		return 0, err
	}
	return m.chain.Count(ctx, userID)
}

// Health pings every tier in priority order.
func (m *Manager) Health(ctx context.Context) []TierHealth {
	if m.ready() != nil {
		return nil
	}
	hs := m.chain.Health(ctx)
	out := make([]TierHealth, len(hs))
	for i, h := range hs {
		out[i] = TierHealth{Tier: h.Tier, Healthy: h.Healthy, Latency: h.Latency}
		if h.Err != nil {
			out[i].Error = h.Err.Error()
		}
	}
	return out
}

// Tiers returns the active tier names in priority order.
func (m *Manager) Tiers() []string {
	if m == nil || m.chain == nil {
		return nil
	}
	return m.chain.Tiers()
}

// Config returns a copy of the configuration the Manager was built with.
func (m *Manager) Config() Config {
	if m == nil {
		return Config{}
	}
	return cloneConfig(m.config)
}

// Reaper returns the cleanup scheduler, or nil when Config.Reaper.Enabled
// is false.
func (m *Manager) Reaper() *Reaper {
	if m == nil {
		return nil
	}
	return m.reaper
}

// Close stops the reaper, drains the audit dispatcher and closes a Redis
// client the Manager dialed itself. Clients passed to WithRedis are left
// open.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		if m.reaper != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = m.reaper.Stop(ctx)
			cancel()
		}
		if m.audit != nil {
			m.audit.Close()
		}
		if m.ownedRedis != nil {
			_ = m.ownedRedis.Close()
		}
	})
}

// AuditDropped reports audit events dropped by a full dispatcher buffer.
func (m *Manager) AuditDropped() uint64 {
	if m == nil || m.audit == nil {
		return 0
	}
	return m.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// It returns empty maps when metrics are disabled.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return internalmetrics.EmptySnapshot()
	}
	return m.metrics.Snapshot()
}

// chainObserver feeds tier failures and fallback use into metrics and audit
// without exporting the observer methods on Manager.
type chainObserver struct {
	m *Manager
}

func (o chainObserver) TierFailed(tier, op string, _ error) {
	o.m.metrics.Inc(MetricTierFailure)
	o.m.metrics.IncTierFailure(tier, op)
}

func (o chainObserver) FallbackUsed(tier, op string) {
	o.m.metrics.IncFallback(tier, op)
}

func (o chainObserver) CorruptRecord(tier, sessionID string) {
	o.m.metrics.Inc(MetricSessionCorrupt)
	o.m.emitAudit(context.Background(), auditEventSessionCorrupt, false, "", sessionID, tier, ErrSerialization, nil)
}
