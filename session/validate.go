package session

import (
	"fmt"
	"time"
)

const (
	// DefaultMaxAge bounds a session's total lifetime.
	DefaultMaxAge = 24 * time.Hour
	// DefaultMaxIdle bounds the gap between two validated uses.
	DefaultMaxIdle = 2 * time.Hour
)

// Policy holds the time limits enforced by [Validate]. Zero fields fall back
// to [DefaultMaxAge] and [DefaultMaxIdle].
type Policy struct {
	MaxAge  time.Duration
	MaxIdle time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxAge <= 0 {
		p.MaxAge = DefaultMaxAge
	}
	if p.MaxIdle <= 0 {
		p.MaxIdle = DefaultMaxIdle
	}
	return p
}

// Observation is the request metadata presented with a session.
type Observation struct {
	IPAddress string
	UserAgent string
}

// ExpiryReason names the limit a session exceeded.
type ExpiryReason uint8

const (
	NotExpired ExpiryReason = iota
	ExpiredMaxAge
	ExpiredIdle
)

func (r ExpiryReason) String() string {
	switch r {
	case ExpiredMaxAge:
		return "max_age"
	case ExpiredIdle:
		return "idle"
	default:
		return "none"
	}
}

// Verdict is the outcome of [Validate]. Mismatch flags are advisory.
type Verdict struct {
	Expired           ExpiryReason
	IPMismatch        bool
	UserAgentMismatch bool
}

// DeviceMismatch reports whether either observed attribute differs from the
// stored one.
func (v Verdict) DeviceMismatch() bool {
	return v.IPMismatch || v.UserAgentMismatch
}

// Validate checks rec against the policy at now. It returns an error wrapping
// [ErrAuthenticationExpired] when the session is older than MaxAge or has been
// idle longer than MaxIdle. IP and User-Agent differences never fail
// validation; they are only reported in the verdict.
func Validate(rec *Record, obs Observation, now time.Time, p Policy) (Verdict, error) {
	var v Verdict
	if rec == nil {
		return v, ErrSessionNotFound
	}
	p = p.withDefaults()

	if age := now.Sub(rec.CreatedAt); age > p.MaxAge {
		v.Expired = ExpiredMaxAge
		return v, fmt.Errorf("%w: session age %s exceeds %s", ErrAuthenticationExpired, age.Truncate(time.Second), p.MaxAge)
	}
	if idle := now.Sub(rec.LastAccessed); idle > p.MaxIdle {
		v.Expired = ExpiredIdle
		return v, fmt.Errorf("%w: session idle %s exceeds %s", ErrAuthenticationExpired, idle.Truncate(time.Second), p.MaxIdle)
	}

	v.IPMismatch = rec.IPAddress != "" && obs.IPAddress != "" && rec.IPAddress != obs.IPAddress
	v.UserAgentMismatch = rec.UserAgent != "" && obs.UserAgent != "" && rec.UserAgent != obs.UserAgent
	return v, nil
}
