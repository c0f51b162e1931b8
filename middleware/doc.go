// Package middleware adapts [goSession.Manager] to net/http.
//
// [RequireSession] finds the session id in a cookie, or through a
// [SessionIDResolver] such as a bearer-token verifier, validates it with
// Manager.ValidateSession, and stores the record in the request context.
// Every failure renders the same 401 so clients cannot tell a missing
// session from an expired one or a degraded backend.
//
// # What this package must NOT do
//
//   - Issue or rotate sessions. Login handlers own that.
//   - Distinguish failure causes in the response.
package middleware
