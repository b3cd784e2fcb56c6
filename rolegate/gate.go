package rolegate

import "strings"

// Mode selects how required roles are matched.
type Mode uint8

const (
	// Any grants access when at least one required role is held.
	Any Mode = iota
	// All grants access only when every required role is held.
	All
)

// String returns the lowercase mode name.
func (m Mode) String() string {
	switch m {
	case Any:
		return "any"
	case All:
		return "all"
	default:
		return "unknown"
	}
}

// ParseMode parses "any" or "all" (case-insensitive).
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "any":
		return Any, true
	case "all":
		return All, true
	default:
		return Any, false
	}
}

// Assignment is the role data the gate reads.
type Assignment struct {
	Code        string
	Permissions []string
}

// Set holds the role codes of one principal snapshot and the permission
// grants those roles carry.
type Set struct {
	roles  map[string]struct{}
	grants *grants
}

// NewSet indexes the given assignments. Empty codes are ignored. If the
// grant enforcer cannot be built the set holds no permissions.
func NewSet(assignments []Assignment) Set {
	s := Set{roles: make(map[string]struct{}, len(assignments))}
	for _, a := range assignments {
		if a.Code != "" {
			s.roles[a.Code] = struct{}{}
		}
	}
	if g, err := newGrants(assignments); err == nil {
		s.grants = g
	}
	return s
}

// HasRole reports whether code is held.
func (s Set) HasRole(code string) bool {
	_, ok := s.roles[code]
	return ok
}

// HasPermission reports whether any held role grants the permission code.
func (s Set) HasPermission(code string) bool {
	if code == "" || s.grants == nil {
		return false
	}
	return s.grants.allows(code)
}

// Check evaluates required against the set in the given mode.
//
// Any mode is R ∩ P ≠ ∅; All mode is R ⊆ P. Both return false for an empty
// required list, and an unknown mode never grants access.
func (s Set) Check(mode Mode, required ...string) bool {
	if len(required) == 0 {
		return false
	}
	switch mode {
	case Any:
		for _, r := range required {
			if s.HasRole(r) {
				return true
			}
		}
		return false
	case All:
		for _, r := range required {
			if !s.HasRole(r) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Check is a convenience wrapper over [NewSet] and [Set.Check].
func Check(assignments []Assignment, mode Mode, required ...string) bool {
	return NewSet(assignments).Check(mode, required...)
}

// Policy names the role codes that carry administrative meaning.
type Policy struct {
	AdminRoles     []string
	SuperAdminRole string
}

// DefaultPolicy returns admin roles {admin, super_admin} and super admin
// role super_admin.
func DefaultPolicy() Policy {
	return Policy{
		AdminRoles:     []string{"admin", "super_admin"},
		SuperAdminRole: "super_admin",
	}
}

// IsAdmin reports whether the set holds any admin role.
func (p Policy) IsAdmin(s Set) bool {
	return s.Check(Any, p.AdminRoles...)
}

// IsSuperAdmin reports whether the set holds the super admin role.
func (p Policy) IsSuperAdmin(s Set) bool {
	if p.SuperAdminRole == "" {
		return false
	}
	return s.HasRole(p.SuperAdminRole)
}
