// Package goSession manages the client side of an authenticated portal
// session: credential sign-in, optional second-factor step-up, silent
// rotation of short-lived access tokens, and role-based gating.
//
// A [Session] is built once through [Builder.Build] and passed by handle.
// Its methods are safe to call from multiple goroutines.
//
// # State machine
//
// A session is always in exactly one [StateKind]:
//
//	Unauthenticated --SignInWithCredentials--> Authenticating
//	Authenticating  --tokens + principal-----> Authenticated
//	Authenticating  --second factor required-> AwaitingSecondFactor
//	Authenticating  --failure----------------> Unauthenticated
//	AwaitingSecondFactor --accepted----------> Authenticated
//	AwaitingSecondFactor --rejected----------> AwaitingSecondFactor
//	Authenticated   --refresh fails----------> RefreshFailed
//	RefreshFailed   --SignInWithCredentials--> Authenticating
//	any             --SignOut----------------> Unauthenticated
//
// [Session.AccessToken] refreshes the pair once the access token is within
// the refresh buffer of its expiry. Concurrent callers share one refresh.
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Session], [Builder], [Config]
// and value types. Backend exchanges live in internal/flows, wire types in
// remote, persistence in store and role evaluation in rolegate.
//
// # What this package must NOT do
//
//   - Return a token pair whose refresh point has passed without attempting
//     exactly one refresh.
//   - Expose refresh tokens through State, Principal, audit events or logs.
//   - Retry failed refreshes or second-factor submissions on its own.
package goSession
