// Package goSession is a tiered session lifecycle store for authenticated
// web services.
//
// It persists opaque, caller-generated session ids bound to a user UUID,
// caps concurrent sessions per user, and invalidates sessions in bulk for
// logout-everywhere and password changes. Storage is a priority chain of
// tiers: Redis, then a SQL database, then process memory. Each tier is
// optional except the last, so the store keeps serving when the durable
// tiers are down, at the cost of sessions that do not survive a restart.
//
// The store is best-effort and eventually consistent across tiers. A session
// written to memory while Redis was down is not copied back when Redis
// recovers.
//
// # Architecture boundaries
//
// goSession is the public surface: [Builder], [Manager], [Config] and value
// types. Tier implementations, the failover chain, audit dispatch and metric
// storage live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Generate session ids, hash passwords or issue tokens.
//   - Connect to Redis without TLS and a strong password in production mode.
//   - Hold the fallback tier in a package global; each Manager owns its own.
package goSession
