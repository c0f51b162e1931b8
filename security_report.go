package goSession

import (
	"time"

	"github.com/MrEthical07/goSession/internal/security"
)

// SecurityReport is a read-only summary of the Manager's security posture.
type SecurityReport struct {
	ProductionMode bool
	// Tiers lists the active tiers in priority order.
	Tiers []string
	// RedisEnabled is false when no client was configured or the client
	// failed the production checks; RedisDisabledReason says which.
	RedisEnabled        bool
	RedisDisabledReason string
	RedisAuthenticated  bool
	RedisEncrypted      bool
	RedisStrongSecret   bool
	SQLEnabled          bool
	// FallbackOnly means sessions live in process memory and do not survive
	// a restart.
	FallbackOnly       bool
	SessionCapActive   bool
	MaxSessionsPerUser int
	SessionTimeout     time.Duration
	MaxAge             time.Duration
	MaxIdle            time.Duration
	BackendCallTimeout time.Duration
	ReaperActive       bool
	AuditActive        bool
}

// SecurityReport describes the securityreport operation and its observable behavior.
//
// SecurityReport performs no I/O.
func (m *Manager) SecurityReport() SecurityReport {
	if m == nil {
		return SecurityReport{}
	}

	var reason string
	if m.redisDisabled != nil {
		reason = m.redisDisabled.Error()
	}
	r := security.BuildReport(security.ReportInput{
		ProductionMode:      m.config.Security.ProductionMode,
		Tiers:               m.Tiers(),
		RedisConfigured:     m.redisConfigured,
		RedisCheck:          m.redisCheck,
		RedisDisabledReason: reason,
		SQLConfigured:       m.sqlConfigured,
		MaxSessionsPerUser:  m.config.Session.MaxSessionsPerUser,
		SessionTimeout:      m.config.Session.Timeout(),
		MaxAge:              m.config.Session.MaxAge,
		MaxIdle:             m.config.Session.MaxIdle,
		BackendCallTimeout:  m.config.Timeouts.BackendCall,
		ReaperEnabled:       m.reaper != nil,
		AuditEnabled:        m.audit != nil,
	})

	return SecurityReport{
		ProductionMode:      r.ProductionMode,
		Tiers:               r.Tiers,
		RedisEnabled:        r.RedisEnabled,
		RedisDisabledReason: r.RedisDisabledReason,
		RedisAuthenticated:  r.RedisAuthenticated,
		RedisEncrypted:      r.RedisEncrypted,
		RedisStrongSecret:   r.RedisStrongSecret,
		SQLEnabled:          r.SQLEnabled,
		FallbackOnly:        r.FallbackOnly,
		SessionCapActive:    r.SessionCapActive,
		MaxSessionsPerUser:  r.MaxSessionsPerUser,
		SessionTimeout:      r.SessionTimeout,
		MaxAge:              r.MaxAge,
		MaxIdle:             r.MaxIdle,
		BackendCallTimeout:  r.BackendCallTimeout,
		ReaperActive:        r.ReaperActive,
		AuditActive:         r.AuditActive,
	}
}
