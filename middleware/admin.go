package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

func RequireAdmin(s *goSession.Session) func(http.Handler) http.Handler {
	return Guard(s, (*goSession.Session).IsAdmin)
}

func RequireSuperAdmin(s *goSession.Session) func(http.Handler) http.Handler {
	return Guard(s, (*goSession.Session).IsSuperAdmin)
}
