// Package session defines the session record, its compact binary encoding,
// and the pure security validator applied on every authenticated request.
//
// # Binary encoding
//
// Records are persisted as a versioned big-endian blob (see [Encode]).
// Storage tiers keep recency outside the blob as well (a sorted-set score in
// Redis, the updated_at column in SQL) so eviction never decodes records.
//
// # Architecture boundaries
//
// This package owns the [Record] model, the codec, the [Validate] policy
// check, and the sentinel errors shared by every storage tier. It performs
// no I/O and holds no state beyond the string intern table.
//
// # What this package must NOT do
//
//   - Import goSession, storage tiers, or transport packages (no upward imports).
//   - Generate session identifiers; callers own identifier generation.
//   - Store plaintext credentials in [Record] fields.
package session
