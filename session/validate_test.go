package session

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestValidateRejectsSessionOlderThanMaxAge(t *testing.T) {
	now := time.Now()
	rec := &Record{UserID: uuid.New(), CreatedAt: now.Add(-25 * time.Hour), LastAccessed: now.Add(-time.Minute)}

	v, err := Validate(rec, Observation{}, now, Policy{})
	if !errors.Is(err, ErrAuthenticationExpired) {
		t.Fatalf("expected ErrAuthenticationExpired, got %v", err)
	}
	if v.Expired != ExpiredMaxAge {
		t.Fatalf("expected max_age reason, got %s", v.Expired)
	}
}

func TestValidateRejectsIdleSession(t *testing.T) {
	now := time.Now()
	rec := &Record{UserID: uuid.New(), CreatedAt: now.Add(-4 * time.Hour), LastAccessed: now.Add(-3 * time.Hour)}

	v, err := Validate(rec, Observation{}, now, Policy{})
	if !errors.Is(err, ErrAuthenticationExpired) {
		t.Fatalf("expected ErrAuthenticationExpired, got %v", err)
	}
	if v.Expired != ExpiredIdle {
		t.Fatalf("expected idle reason, got %s", v.Expired)
	}
}

func TestValidateAcceptsFreshSession(t *testing.T) {
	now := time.Now()
	rec := &Record{UserID: uuid.New(), CreatedAt: now.Add(-30 * time.Minute), LastAccessed: now.Add(-5 * time.Minute)}

	v, err := Validate(rec, Observation{}, now, Policy{})
	if err != nil {
		t.Fatalf("expected valid session, got %v", err)
	}
	if v.Expired != NotExpired || v.DeviceMismatch() {
		t.Fatalf("unexpected verdict %+v", v)
	}
}

func TestValidateBoundariesAreInclusive(t *testing.T) {
	now := time.Now()
	p := Policy{MaxAge: time.Hour, MaxIdle: 10 * time.Minute}
	rec := &Record{UserID: uuid.New(), CreatedAt: now.Add(-time.Hour), LastAccessed: now.Add(-10 * time.Minute)}

	if _, err := Validate(rec, Observation{}, now, p); err != nil {
		t.Fatalf("expected session exactly at limits to pass, got %v", err)
	}
}

func TestValidateReportsDeviceMismatchWithoutFailing(t *testing.T) {
	now := time.Now()
	rec := &Record{
		UserID:       uuid.New(),
		CreatedAt:    now.Add(-time.Minute),
		LastAccessed: now.Add(-time.Minute),
		IPAddress:    "192.0.2.10",
		UserAgent:    "agent-a",
	}

	v, err := Validate(rec, Observation{IPAddress: "192.0.2.99", UserAgent: "agent-b"}, now, Policy{})
	if err != nil {
		t.Fatalf("mismatch must not fail validation, got %v", err)
	}
	if !v.IPMismatch || !v.UserAgentMismatch {
		t.Fatalf("expected both mismatch flags, got %+v", v)
	}

	v, err = Validate(rec, Observation{}, now, Policy{})
	if err != nil || v.DeviceMismatch() {
		t.Fatalf("missing observation must not be a mismatch, got %+v %v", v, err)
	}
}

func TestValidateNilRecord(t *testing.T) {
	if _, err := Validate(nil, Observation{}, time.Now(), Policy{}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
