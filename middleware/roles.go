package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// RequireAnyRole admits principals holding at least one of codes.
//
//	Docs: goSession.Session.HasAnyRole
func RequireAnyRole(s *goSession.Session, codes ...string) func(http.Handler) http.Handler {
	required := append([]string(nil), codes...)
	return Guard(s, func(session *goSession.Session) bool {
		return session.HasAnyRole(required...)
	})
}

// RequireAllRoles admits principals holding every one of codes.
func RequireAllRoles(s *goSession.Session, codes ...string) func(http.Handler) http.Handler {
	required := append([]string(nil), codes...)
	return Guard(s, func(session *goSession.Session) bool {
		return session.HasAllRoles(required...)
	})
}

// RequirePermission admits principals granted the permission code.
func RequirePermission(s *goSession.Session, code string) func(http.Handler) http.Handler {
	return Guard(s, func(session *goSession.Session) bool {
		return session.HasPermission(code)
	})
}
