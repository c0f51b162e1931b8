package security

import (
	"errors"
	"testing"
	"time"
)

func TestCheckRedis(t *testing.T) {
	tests := []struct {
		name       string
		transport  RedisTransport
		wantOK     bool
		wantErr    error
		wantStrong bool
	}{
		{
			name:       "strong password over tls",
			transport:  RedisTransport{Password: "Vx9!mQ2#rT7$kL4@", TLS: true, Inspectable: true},
			wantOK:     true,
			wantStrong: true,
		},
		{
			name:      "no password",
			transport: RedisTransport{TLS: true, Inspectable: true},
			wantErr:   errNoAuth,
		},
		{
			name:       "plaintext transport",
			transport:  RedisTransport{Password: "Vx9!mQ2#rT7$kL4@", Inspectable: true},
			wantErr:    errNoTLS,
			wantStrong: true,
		},
		{
			name:      "too short",
			transport: RedisTransport{Password: "Ab1!Ab1!", TLS: true, Inspectable: true},
			wantErr:   errShort,
		},
		{
			name:      "two classes",
			transport: RedisTransport{Password: "abcdefghijklmnop1234", TLS: true, Inspectable: true},
			wantErr:   errClasses,
		},
		{
			name:      "known weak",
			transport: RedisTransport{Password: "P@ssw0rdP@ssw0rd", TLS: true, Inspectable: true},
			wantErr:   errKnownWeak,
		},
		{
			name:      "uninspectable client",
			transport: RedisTransport{Password: "Vx9!mQ2#rT7$kL4@", TLS: true},
			wantErr:   errUnverifiable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := CheckRedis(tc.transport, 16)
			if res.OK() != tc.wantOK {
				t.Fatalf("OK() = %v, want %v (problems %v)", res.OK(), tc.wantOK, res.Problems)
			}
			if tc.wantOK {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			} else if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if res.StrongSecret != tc.wantStrong {
				t.Fatalf("StrongSecret = %v, want %v", res.StrongSecret, tc.wantStrong)
			}
		})
	}
}

func TestCheckRedisDefaultsMinLength(t *testing.T) {
	_, err := CheckRedis(RedisTransport{Password: "Ab1!Ab1!Ab1!", TLS: true, Inspectable: true}, 0)
	if !errors.Is(err, errShort) {
		t.Fatalf("expected default minimum of %d to reject a 12-char password, got %v", DefaultMinPasswordLength, err)
	}
}

func TestCheckRedisReportsEveryProblem(t *testing.T) {
	res, err := CheckRedis(RedisTransport{Password: "aaaa", Inspectable: true}, 16)
	if err == nil {
		t.Fatal("expected failure")
	}
	for _, want := range []error{errNoTLS, errShort, errClasses, errKnownWeak} {
		if !errors.Is(err, want) {
			t.Fatalf("expected joined error to include %v, got %v", want, err)
		}
	}
	if len(res.Problems) != 4 {
		t.Fatalf("expected 4 problems, got %v", res.Problems)
	}
}

func TestCharacterClasses(t *testing.T) {
	cases := map[string]int{
		"":         0,
		"abc":      1,
		"abcDEF":   2,
		"abcDEF12": 3,
		"aB1!":     4,
		"ÄÖü9":     3,
	}
	for in, want := range cases {
		if got := CharacterClasses(in); got != want {
			t.Fatalf("CharacterClasses(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestIsKnownWeakRepeatedCharacter(t *testing.T) {
	if !IsKnownWeak("zzzzzzzzzzzzzzzzzzzz") {
		t.Fatal("repeated character should be weak")
	}
	if IsKnownWeak("") {
		t.Fatal("empty password is reported by the auth check, not the weak list")
	}
	if IsKnownWeak("Vx9!mQ2#rT7$kL4@") {
		t.Fatal("random password flagged as weak")
	}
}

func TestBuildReport(t *testing.T) {
	check := &RedisCheck{Authenticated: true, Encrypted: false}
	r := BuildReport(ReportInput{
		ProductionMode:      true,
		Tiers:               []string{"sql", "memory"},
		RedisConfigured:     true,
		RedisCheck:          check,
		RedisDisabledReason: "redis connection is not encrypted",
		SQLConfigured:       true,
		MaxSessionsPerUser:  3,
		SessionTimeout:      8 * time.Hour,
	})

	if r.RedisEnabled {
		t.Fatal("redis should be reported disabled")
	}
	if r.FallbackOnly {
		t.Fatal("sql tier is present; not fallback-only")
	}
	if !r.SessionCapActive || r.MaxSessionsPerUser != 3 {
		t.Fatalf("unexpected cap fields: %+v", r)
	}
	if !r.RedisAuthenticated || r.RedisEncrypted {
		t.Fatalf("check fields not copied: %+v", r)
	}

	empty := BuildReport(ReportInput{})
	if !empty.FallbackOnly {
		t.Fatal("no primaries configured should be fallback-only")
	}
}
