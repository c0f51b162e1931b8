package goSession

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/internal"
)

const (
	auditEventSessionCreated      = "session_created"
	auditEventSessionEvicted      = "session_evicted"
	auditEventSessionDeleted      = "session_deleted"
	auditEventSessionsInvalidated = "sessions_invalidated"
	auditEventSessionExpired      = "session_expired"
	auditEventSessionCorrupt      = "session_corrupt"
	auditEventSessionsSwept       = "sessions_swept"
	auditEventDeviceMismatch      = "device_mismatch"
	auditEventTierFallback        = "tier_fallback"
	auditEventTierDisabled        = "tier_disabled"
)

// AuditErrorCode is the stable, non-sensitive error classification written
// to [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrSessionNotFound AuditErrorCode = "session_not_found"
	auditErrExpired         AuditErrorCode = "authentication_expired"
	auditErrInvalidRecord   AuditErrorCode = "invalid_record"
	auditErrSerialization   AuditErrorCode = "serialization"
	auditErrUnavailable     AuditErrorCode = "backend_unavailable"
	auditErrInsecureBackend AuditErrorCode = "insecure_backend"
	auditErrInternal        AuditErrorCode = "internal_error"
)

func (m *Manager) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	tier string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if m == nil || m.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: m.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionFingerprint(sessionID),
		Tier:      tier,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	m.audit.Emit(ctx, event)
}

// sessionFingerprint keeps bearer session ids out of audit sinks while still
// letting events about the same session be correlated.
func sessionFingerprint(sessionID string) string {
	return internal.Fingerprint(sessionID)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrAuthenticationExpired):
		return auditErrExpired
	case errors.Is(err, ErrInvalidRecord):
		return auditErrInvalidRecord
	case errors.Is(err, ErrSerialization):
		return auditErrSerialization
	case errors.Is(err, ErrSecurityConfiguration):
		return auditErrInsecureBackend
	case errors.Is(err, ErrTierUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
