package session

import "errors"

var (
	// ErrTierUnavailable is returned when a storage tier cannot serve a call
	// (connection failure, timeout, recovered panic).
	ErrTierUnavailable = errors.New("storage tier unavailable")
	// ErrSessionNotFound is returned when no tier holds the requested session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSerialization is returned when a stored record cannot be encoded or decoded.
	ErrSerialization = errors.New("session serialization failed")
	// ErrSecurityConfiguration is returned when a tier's transport security
	// preconditions are not met.
	ErrSecurityConfiguration = errors.New("insecure storage tier configuration")
	// ErrAuthenticationExpired is returned when a session exceeds its maximum
	// age or idle window.
	ErrAuthenticationExpired = errors.New("authentication expired")
	// ErrInvalidRecord is returned for empty session ids or records without a user.
	ErrInvalidRecord = errors.New("invalid session record")
)
