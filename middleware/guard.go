package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// WithSession attaches s to every request context so handlers and guards can
// read it with goSession.FromContext.
func WithSession(s *goSession.Session) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s == nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(goSession.WithSession(r.Context(), s)))
		})
	}
}

// Guard admits a request when the session yields a usable access token and
// allow returns true. The token read refreshes an expiring session before
// allow runs. A nil s falls back to the session in the request context.
// Requests without a usable session get 401; requests rejected by allow
// get 403.
func Guard(s *goSession.Session, allow func(*goSession.Session) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := s
			if session == nil {
				session, _ = goSession.FromContext(r.Context())
			}
			if session == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ok, err := session.Authorize(r.Context(), allow)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !ok {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := r.Context()
			if s != nil {
				ctx = goSession.WithSession(ctx, s)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated admits any request with an authenticated session.
func RequireAuthenticated(s *goSession.Session) func(http.Handler) http.Handler {
	return Guard(s, nil)
}
