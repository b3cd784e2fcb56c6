// Package middleware exposes HTTP middleware that gates handlers on a
// goSession.Session: its state and the role gate of its principal.
//
// # Guards
//
//   - [WithSession]: injects the session into the request context.
//   - [Guard]: authenticated session plus a custom predicate.
//   - [RequireAuthenticated]: any authenticated session.
//   - [RequireAnyRole], [RequireAllRoles], [RequirePermission]: role gate.
//   - [RequireAdmin], [RequireSuperAdmin]: configured admin roles.
//
// Unauthenticated requests, including sessions in RefreshFailed or waiting
// for a second factor, get 401. Authenticated requests that fail the role
// gate get 403.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Session calls. It does NOT
// implement role logic itself; every decision is delegated to the Session.
//
// # What this package must NOT do
//
//   - Read or forward tokens (use Session.HTTPClient for outbound calls).
//   - Trigger sign-in, refresh or sign-out.
//   - Make authorization decisions beyond the Session's role gate.
package middleware
