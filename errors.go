package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/session"
)

var (
	// ErrTierUnavailable is returned when a storage tier cannot serve a call.
	ErrTierUnavailable = session.ErrTierUnavailable
	// ErrSessionNotFound is returned when no tier holds the requested session.
	ErrSessionNotFound = session.ErrSessionNotFound
	// ErrSerialization is returned when a record cannot be encoded or decoded.
	ErrSerialization = session.ErrSerialization
	// ErrSecurityConfiguration is returned when Tier 1 fails the production
	// transport checks. The tier is disabled and the store keeps running.
	ErrSecurityConfiguration = session.ErrSecurityConfiguration
	// ErrAuthenticationExpired is returned when a session exceeds its maximum
	// age or idle window. Callers should ask the user to log in again.
	ErrAuthenticationExpired = session.ErrAuthenticationExpired
	// ErrInvalidRecord is returned for an empty session id or a record
	// without a user.
	ErrInvalidRecord = session.ErrInvalidRecord
	// ErrManagerNotReady is returned by methods called on a nil or closed Manager.
	ErrManagerNotReady = errors.New("session manager not ready")
	// ErrUnsupportedRedisClient is returned by Build for a cluster or ring
	// client. Tier 1 needs a single Redis primary.
	ErrUnsupportedRedisClient = errors.New("redis client must address a single primary")
	// ErrBuilderUsed is returned by a second call to Builder.Build.
	ErrBuilderUsed = errors.New("builder already used")
)
