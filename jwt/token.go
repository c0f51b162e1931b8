package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over Ed25519. It is the default.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256 and a shared secret.
	MethodHS256 SigningMethod = "hs256"
)

var (
	// ErrNoToken is returned when a request carries no bearer token.
	ErrNoToken = errors.New("jwt: no bearer token")
	// ErrMissingSessionID is returned for a valid token without a sid claim.
	ErrMissingSessionID = errors.New("jwt: token has no session id")
)

// Config holds keys and validation rules shared by [Signer] and [Verifier].
//
// For Ed25519, PrivateKey and PublicKey accept raw key bytes or PEM. For
// HS256, PrivateKey is the shared secret and PublicKey is ignored.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	RequireIAT    bool
	MaxFutureIAT  time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
}

// SessionClaims carries a session id and its owner.
type SessionClaims struct {
	UID string `json:"uid"`
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// Signer issues session tokens.
type Signer struct {
	config Config
	now    func() time.Time
}

// Verifier parses session tokens and resolves session ids from requests.
type Verifier struct {
	config Config
	now    func() time.Time
}

func normalize(cfg Config) (Config, error) {
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodEd25519
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return cfg, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return cfg, errors.New("invalid MaxFutureIAT configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return cfg, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return cfg, err
			}
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return cfg, err
			}
		}
	default:
		return cfg, errors.New("unsupported signing method")
	}

	for kid, key := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return cfg, errors.New("verify key map contains empty kid")
		}
		if cfg.SigningMethod == MethodEd25519 {
			if _, err := parseEdPublicKey(key); err != nil {
				return cfg, fmt.Errorf("invalid ed25519 verify key for kid %q: %w", kid, err)
			}
		}
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return cfg, errors.New("KeyID is not present in VerifyKeys")
		}
	}
	return cfg, nil
}

// NewSigner validates cfg for signing. TTL must be positive.
func NewSigner(cfg Config) (*Signer, error) {
	cfg, err := normalize(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.SigningMethod == MethodEd25519 && len(cfg.PrivateKey) == 0 {
		return nil, errors.New("ed25519 signer requires private key")
	}
	return &Signer{config: cfg, now: time.Now}, nil
}

// Sign returns a token carrying sessionID and userID.
func (s *Signer) Sign(sessionID, userID string) (string, error) {
	if sessionID == "" {
		return "", ErrMissingSessionID
	}

	now := s.now()
	claims := SessionClaims{
		UID: userID,
		SID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
		},
	}
	if s.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.config.Audience}
	}

	token := jwt.NewWithClaims(method(s.config), claims)
	if s.config.KeyID != "" {
		token.Header["kid"] = s.config.KeyID
	}

	var key interface{}
	switch s.config.SigningMethod {
	case MethodHS256:
		key = s.config.PrivateKey
	default:
		pk, err := parseEdPrivateKey(s.config.PrivateKey)
		if err != nil {
			return "", err
		}
		key = pk
	}
	return token.SignedString(key)
}

// NewVerifier validates cfg for verification. Ed25519 needs PublicKey or
// VerifyKeys.
func NewVerifier(cfg Config) (*Verifier, error) {
	cfg, err := normalize(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.SigningMethod == MethodEd25519 && len(cfg.PublicKey) == 0 && len(cfg.VerifyKeys) == 0 {
		return nil, errors.New("ed25519 requires public key or verify key set")
	}
	return &Verifier{config: cfg, now: time.Now}, nil
}

// Parse verifies tokenStr and returns its claims.
func (v *Verifier) Parse(tokenStr string) (*SessionClaims, error) {
	alg := method(v.config).Alg()
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{alg}),
		jwt.WithTimeFunc(v.now),
	}
	if v.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(v.config.Leeway))
	}
	if v.config.RequireIAT {
		options = append(options, jwt.WithIssuedAt())
	}
	if v.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		options = append(options, jwt.WithAudience(v.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != alg {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}

		if len(v.config.VerifyKeys) > 0 {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			key, ok := v.config.VerifyKeys[kid]
			if !ok {
				return nil, errors.New("unknown kid")
			}
			return v.verifyKey(key)
		}

		if v.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != v.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}

		if v.config.SigningMethod == MethodHS256 {
			return v.config.PrivateKey, nil
		}
		return v.verifyKey(v.config.PublicKey)
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(v.now().Add(v.config.MaxFutureIAT)) {
		return nil, errors.New("token iat too far in the future")
	}
	if claims.SID == "" {
		return nil, ErrMissingSessionID
	}
	return claims, nil
}

// ResolveSessionID reads the Authorization bearer token of r and returns
// the session id it carries.
func (v *Verifier) ResolveSessionID(r *http.Request) (string, error) {
	const bearer = "Bearer "
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, bearer) || len(h) == len(bearer) {
		return "", ErrNoToken
	}
	claims, err := v.Parse(h[len(bearer):])
	if err != nil {
		return "", err
	}
	return claims.SID, nil
}

func (v *Verifier) verifyKey(key []byte) (interface{}, error) {
	if v.config.SigningMethod == MethodHS256 {
		return key, nil
	}
	return parseEdPublicKey(key)
}

func method(cfg Config) jwt.SigningMethod {
	if cfg.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
