package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testRecord() *Record {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := New(uuid.MustParse("0d6f7f7e-5a2b-4d3c-8e1f-9a0b1c2d3e4f"), "198.51.100.23", "Mozilla/5.0 (X11; Linux x86_64)", created)
	rec.Touch(created.Add(17*time.Minute + 250*time.Millisecond))
	return rec
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rec := testRecord()

	data, err := Encode(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if data[0] != CurrentSchemaVersion {
		t.Fatalf("expected version byte %d, got %d", CurrentSchemaVersion, data[0])
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.UserID != rec.UserID {
		t.Fatalf("user mismatch: %s != %s", got.UserID, rec.UserID)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) || !got.LastAccessed.Equal(rec.LastAccessed) {
		t.Fatalf("timestamp mismatch: %+v vs %+v", got, rec)
	}
	if got.IPAddress != rec.IPAddress || got.UserAgent != rec.UserAgent {
		t.Fatalf("metadata mismatch: %+v vs %+v", got, rec)
	}
}

func TestEncodeDecodeEmptyMetadata(t *testing.T) {
	rec := New(uuid.New(), "", "", time.Now())

	data, err := Encode(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.IPAddress != "" || got.UserAgent != "" {
		t.Fatalf("expected empty metadata, got %+v", got)
	}
}

func TestDecodeRejectsUnsupportedSchemaVersion(t *testing.T) {
	_, err := Decode([]byte{99})
	if err == nil || !strings.Contains(err.Error(), "unsupported session schema version") {
		t.Fatalf("expected unsupported schema version error, got %v", err)
	}
	if !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization, got %v", err)
	}
}

func TestDecodeRejectsTruncatedAndPaddedBlobs(t *testing.T) {
	data, err := Encode(testRecord())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	for _, n := range []int{1, 17, lastAccessedOffset, fixedHeaderSize, len(data) - 1} {
		if _, err := Decode(data[:n]); !errors.Is(err, ErrSerialization) {
			t.Fatalf("truncated at %d: expected ErrSerialization, got %v", n, err)
		}
	}

	padded := append(append([]byte{}, data...), 0x00)
	if _, err := Decode(padded); !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected trailing bytes to be rejected, got %v", err)
	}
}

func TestEncodeRejectsOversizedMetadata(t *testing.T) {
	rec := testRecord()
	rec.UserAgent = strings.Repeat("a", maxUserAgentLength+1)
	if _, err := Encode(rec); !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization for long user agent, got %v", err)
	}

	rec = testRecord()
	rec.IPAddress = strings.Repeat("1", maxIPAddressLength+1)
	if _, err := Encode(rec); !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization for long ip, got %v", err)
	}
}
