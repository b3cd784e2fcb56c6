// Package remote is the transport boundary between a goSession Session and the
// portal backend.
//
// # Caller
//
// Every backend interaction goes through [Caller], the Go form of
// callApi(method, path, body, token). [HTTPCaller] is the net/http
// implementation: JSON bodies, bearer authorization, an X-Request-ID header
// per call, and a client-level timeout so that no call hangs indefinitely.
//
// # Wire types
//
// The request and response shapes of the auth endpoints ([LoginRequest],
// [TokenResponse], [MeResponse], [RoleResponse], ...) live here so that flows
// and the fake authority in authtest agree on one encoding.
//
// # Architecture boundaries
//
// This package moves bytes. It does NOT decide what a status code means for
// the session state machine; internal/flows classifies responses.
//
// # What this package must NOT do
//
//   - Import goSession or any sibling package.
//   - Retry requests or cache tokens.
//   - Log request or response bodies (they carry credentials).
package remote
