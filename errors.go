package goSession

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrInvalidCredentials is returned when the backend rejects email/password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidSecondFactor is returned when a second-factor code is rejected,
	// locally or by the backend.
	ErrInvalidSecondFactor = errors.New("invalid second factor code")
	// ErrSessionBootstrapFailed is returned when tokens were obtained but the
	// principal could not be loaded, or the backend answered with a malformed body.
	ErrSessionBootstrapFailed = errors.New("session bootstrap failed")
	// ErrRefreshToken is returned when the access token could not be refreshed.
	ErrRefreshToken = errors.New("refresh token error")
	// ErrTransport is returned when the backend could not be reached or
	// answered with a server error. The operation may be retried.
	ErrTransport = errors.New("backend unavailable, try again")

	// ErrNotAuthenticated is returned by operations that need a signed-in session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSecondFactorPending is returned while a second factor is awaited.
	ErrSecondFactorPending = errors.New("second factor verification pending")
	// ErrNoSecondFactorPending is returned by VerifySecondFactor outside the
	// awaiting state or for a different principal.
	ErrNoSecondFactorPending = errors.New("no second factor verification pending")
	// ErrSessionNotReady is returned while a sign-in or restore is in flight.
	ErrSessionNotReady = errors.New("session not ready")
	// ErrSuperseded is returned when a newer sign-in or a sign-out replaced
	// the operation's result before it could be applied.
	ErrSuperseded = errors.New("operation superseded")
	// ErrNoPersistedSession is returned by Restore when nothing can be restored.
	ErrNoPersistedSession = errors.New("no persisted session")
	// ErrSessionClosed is returned after Close.
	ErrSessionClosed = errors.New("session closed")
)

// RemoteError is a classified backend failure. It matches its Kind sentinel
// and its underlying cause with errors.Is.
type RemoteError struct {
	Kind    error
	Status  int
	Message string
	Err     error
}

// Error implements error.
func (e *RemoteError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Status != 0 {
		b.WriteString(" (status ")
		b.WriteString(strconv.Itoa(e.Status))
		b.WriteByte(')')
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the sentinel kind and the cause.
func (e *RemoteError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ErrorCode maps err to a stable code for UI messaging:
// "InvalidCredentials", "InvalidSecondFactor", "SessionBootstrapFailed",
// "RefreshTokenError", state codes, or "TryAgain" for everything else.
// A nil error yields "".
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return "InvalidCredentials"
	case errors.Is(err, ErrInvalidSecondFactor):
		return "InvalidSecondFactor"
	case errors.Is(err, ErrSessionBootstrapFailed):
		return "SessionBootstrapFailed"
	case errors.Is(err, ErrRefreshToken):
		return "RefreshTokenError"
	case errors.Is(err, ErrNotAuthenticated), errors.Is(err, ErrNoPersistedSession):
		return "NotAuthenticated"
	case errors.Is(err, ErrSecondFactorPending):
		return "SecondFactorPending"
	case errors.Is(err, ErrNoSecondFactorPending):
		return "NoSecondFactorPending"
	case errors.Is(err, ErrSessionClosed):
		return "SessionClosed"
	default:
		return "TryAgain"
	}
}

// ServerMessage returns the backend's human-readable detail carried by err,
// or "" when there is none.
func ServerMessage(err error) string {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Message
	}
	return ""
}
