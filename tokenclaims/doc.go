// Package tokenclaims reads registered claims from access tokens without
// verifying their signature.
//
// The client never holds the backend's signing key. Peeked claims are hints
// for scheduling (for example an earlier exp than the locally computed
// expiry) and for display; they are never an authorization decision.
//
// # What this package must NOT do
//
//   - Treat a successfully parsed token as trusted.
//   - Reject tokens because they are expired: expiry is reported, not enforced.
package tokenclaims
