package internal

import "testing"

func TestSessionIDRoundTrip(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID failed: %v", err)
	}
	s := sid.String()
	if len(s) != 22 {
		t.Fatalf("expected 22 char encoding, got %d", len(s))
	}
	parsed, err := ParseSessionID(s)
	if err != nil {
		t.Fatalf("ParseSessionID failed: %v", err)
	}
	if parsed != sid {
		t.Fatal("round trip mismatch")
	}

	other, _ := NewSessionID()
	if other == sid {
		t.Fatal("expected distinct ids")
	}
}

func TestParseSessionIDRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "short", "!!!!!!!!!!!!!!!!!!!!!!", "AAAAAAAAAAAAAAAAAAAAAAAA"} {
		if _, err := ParseSessionID(in); err == nil {
			t.Fatalf("expected %q to be rejected", in)
		}
	}
}

func TestFingerprint(t *testing.T) {
	if Fingerprint("") != "" {
		t.Fatal("empty input must give empty fingerprint")
	}
	a := Fingerprint("session-a")
	if len(a) != 16 || a != Fingerprint("session-a") || a == Fingerprint("session-b") {
		t.Fatalf("unexpected fingerprint %q", a)
	}
}
