package goSession

// RoleAssignment is one role held by a principal.
type RoleAssignment struct {
	Code        string
	Permissions []string
}

// Principal is the authenticated user as reported by the backend.
//
// Values returned by [Session.Principal] and [Session.State] are copies;
// mutating them does not affect the session.
type Principal struct {
	ID    string
	Email string
	Name  string
	Roles []RoleAssignment
}

// RoleCodes returns the codes of all held roles in backend order.
func (p *Principal) RoleCodes() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		out = append(out, r.Code)
	}
	return out
}

func (p *Principal) clone() *Principal {
	if p == nil {
		return nil
	}
	out := *p
	out.Roles = make([]RoleAssignment, len(p.Roles))
	for i, r := range p.Roles {
		out.Roles[i] = RoleAssignment{
			Code:        r.Code,
			Permissions: append([]string(nil), r.Permissions...),
		}
	}
	return &out
}

// StateKind enumerates session states.
type StateKind uint8

const (
	// StateUnauthenticated holds no tokens and no principal.
	StateUnauthenticated StateKind = iota
	// StateAuthenticating is in the middle of a sign-in or restore.
	StateAuthenticating
	// StateAwaitingSecondFactor has passed the first factor and waits for a code.
	StateAwaitingSecondFactor
	// StateAuthenticated holds a token pair and a principal.
	StateAuthenticated
	// StateRefreshFailed lost its tokens after a failed refresh. The last
	// principal is kept for display.
	StateRefreshFailed
)

// String returns the state name.
func (k StateKind) String() string {
	switch k {
	case StateUnauthenticated:
		return "Unauthenticated"
	case StateAuthenticating:
		return "Authenticating"
	case StateAwaitingSecondFactor:
		return "AwaitingSecondFactor"
	case StateAuthenticated:
		return "Authenticated"
	case StateRefreshFailed:
		return "RefreshFailed"
	default:
		return "Unknown"
	}
}

// State is a point-in-time snapshot of a session.
//
// Principal is set in StateAuthenticated and, as the last known principal,
// in StateRefreshFailed. PrincipalHintID is set only in
// StateAwaitingSecondFactor. Tokens are never part of a snapshot.
type State struct {
	Kind            StateKind
	Principal       *Principal
	PrincipalHintID string
}

// SignInResult is the outcome of a first-factor sign-in that did not fail.
type SignInResult struct {
	OK                   bool
	RequiresSecondFactor bool
	UserID               string
}
