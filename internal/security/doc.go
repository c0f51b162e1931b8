// Package security evaluates transport security for the session tiers and
// assembles the posture report exposed by the Manager.
//
// [CheckRedis] implements the production-mode precondition for Tier 1: the
// connection must authenticate, use TLS, and carry a password of sufficient
// length and character-class diversity that is not a known weak value.
//
// # What this package must NOT do
//
//   - Open network connections; it inspects client options only.
//   - Import goSession or any sibling package.
package security
