package middleware

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/MrEthical07/goSession/jwt"
)

func newManager(t *testing.T) *goSession.Manager {
	t.Helper()
	cfg := goSession.DefaultConfig()
	cfg.Reaper.Enabled = false
	m, err := goSession.New().WithConfig(cfg).WithLogger(logging.Discard()).WithMetricsEnabled(true).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func okHandler(t *testing.T, wantUser uuid.UUID) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, ok := SessionFromContext(r.Context())
		if !ok || rec.UserID != wantUser {
			t.Errorf("expected session for %s in context, got %+v", wantUser, rec)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireSessionCookie(t *testing.T) {
	m := newManager(t)
	uid := uuid.New()
	if _, err := m.CreateSession(context.Background(), "sid-cookie", uid); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	h := RequireSession(m, Options{})(okHandler(t, uid))
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "sid-cookie"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestRequireSessionRejectsWithGenericMessage(t *testing.T) {
	m := newManager(t)
	h := RequireSession(m, Options{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler must not run")
	}))

	for _, tc := range []struct {
		name   string
		cookie string
	}{
		{name: "no cookie"},
		{name: "unknown session", cookie: "nope"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: tc.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"please log in again"}` {
				t.Fatalf("unexpected body %q", got)
			}
		})
	}
}

func TestRequireSessionBearerResolver(t *testing.T) {
	m := newManager(t)
	uid := uuid.New()
	if _, err := m.CreateSession(context.Background(), "sid-bearer", uid); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	cfg := jwt.Config{TTL: time.Minute, PrivateKey: priv, PublicKey: pub}
	signer, err := jwt.NewSigner(cfg)
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	verifier, err := jwt.NewVerifier(cfg)
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}
	tok, err := signer.Sign("sid-bearer", uid.String())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	h := RequireSession(m, Options{Resolver: verifier})(okHandler(t, uid))
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	if err := m.DeleteSession(context.Background(), "sid-bearer"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a valid token naming a deleted session, got %d", rec.Code)
	}
}

func TestRequireSessionPassesClientMetadata(t *testing.T) {
	m := newManager(t)
	ctx := goSession.WithUserAgent(goSession.WithClientIP(context.Background(), "203.0.113.5"), "agent/1")
	if _, err := m.CreateSession(ctx, "sid-meta", uuid.New()); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	h := RequireSession(m, Options{TrustForwardedFor: true})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.2, 10.0.0.1")
	req.Header.Set("User-Agent", "agent/1")
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "sid-meta"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	snap := m.MetricsSnapshot()
	if snap.Counters[goSession.MetricDeviceIPMismatch] != 1 {
		t.Fatalf("expected forwarded IP compared, got %d mismatches", snap.Counters[goSession.MetricDeviceIPMismatch])
	}
	if snap.Counters[goSession.MetricDeviceUAMismatch] != 0 {
		t.Fatalf("expected matching user agent, got %d mismatches", snap.Counters[goSession.MetricDeviceUAMismatch])
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	req.Header.Set("X-Forwarded-For", "198.51.100.2")

	if got := clientIP(req, false); got != "192.0.2.10" {
		t.Fatalf("expected remote addr, got %q", got)
	}
	if got := clientIP(req, true); got != "198.51.100.2" {
		t.Fatalf("expected forwarded addr, got %q", got)
	}
}
