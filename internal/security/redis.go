package security

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// DefaultMinPasswordLength is the shortest Redis password accepted in
// production mode.
const DefaultMinPasswordLength = 16

var (
	errNoAuth       = errors.New("redis connection has no password")
	errNoTLS        = errors.New("redis connection is not encrypted")
	errShort        = errors.New("redis password is too short")
	errClasses      = errors.New("redis password needs at least three character classes")
	errKnownWeak    = errors.New("redis password is a known weak value")
	errUnverifiable = errors.New("redis client options cannot be inspected")
)

// knownWeak holds lowercase passwords rejected regardless of length. Entries
// are long enough to pass the length gate on their own.
var knownWeak = func() map[string]struct{} {
	list := []string{
		"passwordpassword",
		"password1234567890",
		"p@ssw0rdp@ssw0rd",
		"changemechangeme",
		"redisredisredisredis",
		"1234567890123456",
		"qwertyuiopasdfgh",
		"administrator123",
		"letmeinletmeinletme",
		"correcthorsebatterystaple",
	}
	m := make(map[string]struct{}, len(list))
	for _, p := range list {
		m[p] = struct{}{}
	}
	return m
}()

// RedisTransport is the subset of a Redis client's options the
// production-mode precondition inspects.
type RedisTransport struct {
	Username string
	Password string
	TLS      bool
	// Inspectable is false when the client type does not expose options.
	Inspectable bool
}

// RedisCheck is the outcome of [CheckRedis].
type RedisCheck struct {
	Authenticated bool
	Encrypted     bool
	StrongSecret  bool
	Problems      []string
}

// OK reports whether every requirement passed.
func (c RedisCheck) OK() bool {
	return len(c.Problems) == 0
}

// CheckRedis evaluates t against the production requirements: a password,
// TLS, length of at least minLen, at least three of lower/upper/digit/symbol
// and absence from the weak list. The returned error joins every failure.
func CheckRedis(t RedisTransport, minLen int) (RedisCheck, error) {
	if minLen <= 0 {
		minLen = DefaultMinPasswordLength
	}

	var (
		res  RedisCheck
		errs []error
	)
	fail := func(err error) {
		errs = append(errs, err)
		res.Problems = append(res.Problems, err.Error())
	}

	if !t.Inspectable {
		fail(errUnverifiable)
		return res, errors.Join(errs...)
	}

	res.Authenticated = t.Password != ""
	res.Encrypted = t.TLS
	if !res.Authenticated {
		fail(errNoAuth)
	}
	if !res.Encrypted {
		fail(errNoTLS)
	}

	if res.Authenticated {
		strong := true
		if n := len([]rune(t.Password)); n < minLen {
			fail(fmt.Errorf("%w: %d < %d", errShort, n, minLen))
			strong = false
		}
		if n := CharacterClasses(t.Password); n < 3 {
			fail(fmt.Errorf("%w: found %d", errClasses, n))
			strong = false
		}
		if IsKnownWeak(t.Password) {
			fail(errKnownWeak)
			strong = false
		}
		res.StrongSecret = strong
	}

	return res, errors.Join(errs...)
}

// CharacterClasses counts how many of lowercase, uppercase, digit and
// other characters appear in s.
func CharacterClasses(s string) int {
	var lower, upper, digit, other bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			other = true
		}
	}
	n := 0
	for _, b := range []bool{lower, upper, digit, other} {
		if b {
			n++
		}
	}
	return n
}

// IsKnownWeak reports whether s matches the weak list case-insensitively or
// is one character repeated.
func IsKnownWeak(s string) bool {
	if _, ok := knownWeak[strings.ToLower(s)]; ok {
		return true
	}
	if s == "" {
		return false
	}
	first := []rune(s)[0]
	return strings.Trim(s, string(first)) == ""
}
