package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// DefaultCookieName is the cookie RequireSession reads when Options.CookieName
// is empty.
const DefaultCookieName = "session_id"

const reloginMessage = "please log in again"

var errNoSessionID = errors.New("no session id in request")

// SessionIDResolver extracts a session id from a request. jwt.Verifier
// implements it for bearer tokens.
type SessionIDResolver interface {
	ResolveSessionID(r *http.Request) (string, error)
}

// SessionIDResolverFunc adapts a function to [SessionIDResolver].
type SessionIDResolverFunc func(r *http.Request) (string, error)

// ResolveSessionID calls f(r).
func (f SessionIDResolverFunc) ResolveSessionID(r *http.Request) (string, error) {
	return f(r)
}

// Options configures [RequireSession].
type Options struct {
	// CookieName is the session cookie. Defaults to DefaultCookieName.
	CookieName string
	// Resolver handles requests without the cookie. Optional.
	Resolver SessionIDResolver
	// TrustForwardedFor takes the client IP from the first X-Forwarded-For
	// entry. Enable only behind a proxy that sets it.
	TrustForwardedFor bool
}

type recordContextKey struct{}

// SessionFromContext returns the record stored by [RequireSession].
func SessionFromContext(ctx context.Context) (*goSession.Record, bool) {
	rec, ok := ctx.Value(recordContextKey{}).(*goSession.Record)
	return rec, ok
}

// RequireSession admits requests that carry a live session and rejects the
// rest with 401 {"error":"please log in again"}.
func RequireSession(manager *goSession.Manager, opts Options) func(http.Handler) http.Handler {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				unauthorized(w)
				return
			}

			sessionID, err := resolveSessionID(r, opts)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := goSession.WithClientIP(r.Context(), clientIP(r, opts.TrustForwardedFor))
			ctx = goSession.WithUserAgent(ctx, r.UserAgent())

			rec, err := manager.ValidateSession(ctx, sessionID)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx = context.WithValue(ctx, recordContextKey{}, rec)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveSessionID(r *http.Request, opts Options) (string, error) {
	if c, err := r.Cookie(opts.CookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	if opts.Resolver != nil {
		sid, err := opts.Resolver.ResolveSessionID(r)
		if err != nil {
			return "", err
		}
		if sid != "" {
			return sid, nil
		}
	}
	return "", errNoSessionID
}

func clientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": reloginMessage})
}
