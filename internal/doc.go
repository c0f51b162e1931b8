// Package internal holds helpers private to goSession: session id
// generation and the digest used to keep session ids out of logs.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - logging: slog handler construction for the daemon and tools
//   - metrics: lock-free counters and latency histograms
//   - migrate: embedded SQL tier schema and golang-migrate runner
//   - security: Tier 1 transport checks and the security report
//   - tiered: the ordered failover chain over storage tiers
//   - tiers: the Redis, SQL and in-memory tier implementations
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
package internal
