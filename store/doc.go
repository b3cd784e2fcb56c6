// Package store persists the token pair and minimal session metadata that
// must survive a process restart (the Go equivalent of a page reload).
//
// # Backends
//
//   - [MemoryStore]: process-local, the default when persistence is off.
//   - [RedisStore]: shared storage with a compact versioned binary encoding
//     and an optional key TTL.
//   - [FileStore]: a JSON file with 0600 permissions for CLI use.
//
// # Architecture boundaries
//
// This package stores and loads a [Record]. It does NOT decide when a token
// needs refreshing, and it never persists role assignments: roles are
// re-fetched from the backend after a restore.
//
// # What this package must NOT do
//
//   - Import goSession, remote, or internal/flows (no upward imports).
//   - Perform network calls other than to its own storage backend.
//   - Interpret or validate token contents.
package store
