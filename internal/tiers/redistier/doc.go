// Package redistier is the fast key-value storage tier backed by Redis.
//
// Each session lives at <KeyPrefix><session_id> with a native TTL. A sorted
// set at <IndexPrefix><user_uuid>, scored by last-access unix milliseconds,
// indexes a user's sessions for limit enforcement and bulk invalidation.
// Check-and-evict, touch, and bulk delete run as Lua scripts so concurrent
// callers never interleave inside them. Every key a script reads or writes
// is declared in KEYS; scripts that act on a user's whole index run against
// a snapshot of it and report a mismatch so the caller can retry.
//
// The tier targets a single Redis primary. Cluster and ring clients are
// rejected by the builder.
package redistier
