// Package jwt issues and verifies signed tokens that carry a session id, so
// that bearer-token clients can present a session without a cookie.
//
// A [Verifier] satisfies middleware.SessionIDResolver. The token only names
// the session; the session store remains the authority on whether it is live.
package jwt
