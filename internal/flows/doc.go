// Package flows contains pure-function orchestrators for every backend
// exchange a Session performs.
//
// Each flow function (RunLogin, RunBootstrap, RunVerifySecondFactor,
// RunRefresh) accepts a typed dependency struct and returns a result struct
// carrying either the payload or a classified failure. Flows never mutate
// session state; the Session commits results under its own lock.
//
// # Architecture boundaries
//
// Flow functions coordinate calls through a remote.Caller. They do NOT own
// the token store, the state machine, metrics, or the audit dispatcher;
// ownership stays with the Session.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Retry failed calls or panic on malformed responses.
package flows
