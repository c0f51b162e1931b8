package session

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

func TestNormalizeFillsAndClampsTimestamps(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 678_901_234, time.UTC)

	rec := &Record{UserID: uuid.New()}
	rec.Normalize(now)
	if !rec.CreatedAt.Equal(now.Truncate(time.Millisecond)) {
		t.Fatalf("expected created_at %v, got %v", now.Truncate(time.Millisecond), rec.CreatedAt)
	}
	if !rec.LastAccessed.Equal(rec.CreatedAt) {
		t.Fatalf("expected last_accessed to default to created_at, got %v", rec.LastAccessed)
	}

	rec = &Record{UserID: uuid.New(), CreatedAt: now, LastAccessed: now.Add(-time.Hour)}
	rec.Normalize(now)
	if rec.LastAccessed.Before(rec.CreatedAt) {
		t.Fatalf("last_accessed %v precedes created_at %v", rec.LastAccessed, rec.CreatedAt)
	}
}

func TestTouchNeverMovesBackwards(t *testing.T) {
	now := time.Now()
	rec := New(uuid.New(), "", "", now)

	rec.Touch(now.Add(time.Minute))
	later := rec.LastAccessed
	rec.Touch(now)
	if !rec.LastAccessed.Equal(later) {
		t.Fatalf("touch moved last_accessed backwards: %v -> %v", later, rec.LastAccessed)
	}
}

func TestInternSharesBackingString(t *testing.T) {
	a := Intern(string([]byte("Mozilla/5.0")))
	b := Intern(string([]byte("Mozilla/5.0")))
	if a != b {
		t.Fatalf("expected equal strings, got %q and %q", a, b)
	}
	if Intern("") != "" {
		t.Fatal("expected empty string to stay empty")
	}
}

func TestCheckInput(t *testing.T) {
	rec := New(uuid.New(), "", "", time.Now())

	if err := CheckInput("sid", rec); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
	if err := CheckInput("", rec); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord for empty id, got %v", err)
	}
	if err := CheckInput("sid", &Record{}); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord for nil user, got %v", err)
	}
	if err := CheckInput("sid", nil); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord for nil record, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	rec := New(uuid.New(), "10.0.0.1", "ua", time.Now())
	c := rec.Clone()
	c.Touch(time.Now().Add(time.Hour))
	if rec.LastAccessed.Equal(c.LastAccessed) {
		t.Fatal("clone shares state with original")
	}
}

func TestNormalizeClipsOversizedMetadata(t *testing.T) {
	rec := &Record{UserID: uuid.New(), UserAgent: strings.Repeat("u", maxUserAgentLength+50)}
	rec.Normalize(time.Now())
	if len(rec.UserAgent) != maxUserAgentLength {
		t.Fatalf("expected user agent clipped to %d, got %d", maxUserAgentLength, len(rec.UserAgent))
	}
	if _, err := Encode(rec); err != nil {
		t.Fatalf("normalized record must encode, got %v", err)
	}
}

func TestNormalizeClipsOnRuneBoundary(t *testing.T) {
	ua := strings.Repeat("a", maxUserAgentLength-1) + "é"
	ip := strings.Repeat("x", maxIPAddressLength-2) + "€"
	rec := &Record{UserID: uuid.New(), UserAgent: ua, IPAddress: ip}
	rec.Normalize(time.Now())

	if !utf8.ValidString(rec.UserAgent) || len(rec.UserAgent) != maxUserAgentLength-1 {
		t.Fatalf("user agent clipped mid-rune: len=%d valid=%v", len(rec.UserAgent), utf8.ValidString(rec.UserAgent))
	}
	if !utf8.ValidString(rec.IPAddress) || len(rec.IPAddress) != maxIPAddressLength-2 {
		t.Fatalf("ip clipped mid-rune: len=%d valid=%v", len(rec.IPAddress), utf8.ValidString(rec.IPAddress))
	}

	data, err := Encode(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil || got.UserAgent != rec.UserAgent {
		t.Fatalf("round trip: %v", err)
	}
}
