// Package authtest runs an in-process authentication backend for tests.
//
// [Authority] serves the five endpoints a goSession client consumes over
// httptest: login, second-factor verification, refresh, the principal and
// its roles. Access tokens are HS256 JWTs with a random jti; refresh tokens
// are opaque, rotated on every refresh and single use, so a duplicate
// concurrent refresh is rejected the way a strict production backend would.
//
// Knobs inject failures per endpoint and count calls so tests can assert how
// many network round-trips an operation performed.
//
// # What this package must NOT do
//
//   - Be imported by non-test code.
//   - Model rate limiting or lockout; the client does not depend on either.
package authtest
