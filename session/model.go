package session

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Record is the persisted state of one authenticated session.
//
// UserID and CreatedAt are fixed at creation. LastAccessed advances on every
// validated use and is never earlier than CreatedAt once normalized.
type Record struct {
	UserID       uuid.UUID
	CreatedAt    time.Time
	LastAccessed time.Time
	IPAddress    string
	UserAgent    string
}

// New builds a normalized record for userID created at now.
func New(userID uuid.UUID, ipAddress, userAgent string, now time.Time) *Record {
	rec := &Record{
		UserID:    userID,
		CreatedAt: now,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
	rec.Normalize(now)
	return rec
}

// Normalize fills missing timestamps from now, truncates both to the
// millisecond resolution used by the codec, keeps LastAccessed >= CreatedAt,
// clips request metadata to the encodable length and interns it.
func (r *Record) Normalize(now time.Time) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.LastAccessed.IsZero() {
		r.LastAccessed = r.CreatedAt
	}
	r.CreatedAt = truncateMillis(r.CreatedAt)
	r.LastAccessed = truncateMillis(r.LastAccessed)
	if r.LastAccessed.Before(r.CreatedAt) {
		r.LastAccessed = r.CreatedAt
	}
	r.IPAddress = Intern(clip(r.IPAddress, maxIPAddressLength))
	r.UserAgent = Intern(clip(r.UserAgent, maxUserAgentLength))
}

// Touch advances LastAccessed to at. Earlier instants are ignored.
func (r *Record) Touch(at time.Time) {
	at = truncateMillis(at)
	if at.After(r.LastAccessed) {
		r.LastAccessed = at
	}
}

// Clone returns a copy that shares no mutable state with r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// CheckInput rejects an empty session id or a record without a user.
func CheckInput(sessionID string, rec *Record) error {
	if sessionID == "" {
		return ErrInvalidRecord
	}
	if rec == nil || rec.UserID == uuid.Nil {
		return ErrInvalidRecord
	}
	return nil
}

func truncateMillis(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}

// clip cuts s to at most n bytes without splitting a UTF-8 sequence.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
