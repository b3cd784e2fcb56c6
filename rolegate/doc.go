// Package rolegate evaluates role and permission requirements against the
// role assignments of an authenticated principal.
//
// # Modes
//
//   - [Any]: access is granted when the principal holds at least one of the
//     required roles.
//   - [All]: access is granted only when every required role is held.
//
// An empty requirement never grants access in either mode.
//
// # Permissions
//
// Each [Set] loads the permissions of its roles into a casbin enforcer as
// (role, permission) policies. [Set.HasPermission] asks the enforcer once per
// held role and grants when any role is allowed. The enforcer is built with
// the set and never modified afterwards.
//
// # Architecture boundaries
//
// This package receives role codes and returns a boolean. The
// session decides whether a principal exists and whether the session is in a
// state where roles apply.
//
// # What this package must NOT do
//
//   - Perform I/O or call the backend.
//   - Import goSession, remote, or store.
//   - Cache decisions across calls.
//   - Share an enforcer between sets.
package rolegate
