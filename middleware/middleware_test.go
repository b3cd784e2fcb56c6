package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/authtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newSession(t *testing.T) *goSession.Session {
	t.Helper()
	s, _, _ := newClockedSession(t)
	return s
}

func newClockedSession(t *testing.T) (*goSession.Session, *authtest.Authority, *clock) {
	t.Helper()

	c := &clock{now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
	a := authtest.New(t, authtest.WithClock(c.Now))
	a.AddUser(authtest.User{
		ID:       "7",
		Email:    "agent@x.com",
		Password: "pw",
		Roles: []authtest.Role{
			{ID: "1", Name: "agent", Permissions: []string{"tickets.read"}},
		},
	})
	a.AddUser(authtest.User{
		ID:       "9",
		Email:    "root@x.com",
		Password: "pw",
		Roles: []authtest.Role{
			{ID: "2", Name: "Root", Code: "super_admin"},
		},
	})

	s, err := goSession.New().WithBaseURL(a.URL()).WithHTTPClient(a.Client()).WithClock(c.Now).Build()
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, a, c
}

func signIn(t *testing.T, s *goSession.Session, email string) {
	t.Helper()
	res, err := s.SignInWithCredentials(t.Context(), email, "pw")
	require.NoError(t, err)
	require.True(t, res.OK)
}

func serve(h func(http.Handler) http.Handler) int {
	rec := httptest.NewRecorder()
	h(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec.Code
}

func TestGuardRejectsUnauthenticated(t *testing.T) {
	s := newSession(t)

	assert.Equal(t, http.StatusUnauthorized, serve(RequireAuthenticated(s)))
	assert.Equal(t, http.StatusUnauthorized, serve(RequireAnyRole(s, "agent")))
	assert.Equal(t, http.StatusUnauthorized, serve(RequireAdmin(s)))
	assert.Equal(t, http.StatusUnauthorized, serve(RequireAuthenticated(nil)))
}

func TestRoleGuards(t *testing.T) {
	s := newSession(t)
	signIn(t, s, "agent@x.com")

	assert.Equal(t, http.StatusNoContent, serve(RequireAuthenticated(s)))
	assert.Equal(t, http.StatusNoContent, serve(RequireAnyRole(s, "admin", "agent")))
	assert.Equal(t, http.StatusForbidden, serve(RequireAllRoles(s, "admin", "agent")))
	assert.Equal(t, http.StatusForbidden, serve(RequireAnyRole(s)))
	assert.Equal(t, http.StatusNoContent, serve(RequirePermission(s, "tickets.read")))
	assert.Equal(t, http.StatusForbidden, serve(RequirePermission(s, "tickets.delete")))
	assert.Equal(t, http.StatusForbidden, serve(RequireAdmin(s)))
	assert.Equal(t, http.StatusForbidden, serve(RequireSuperAdmin(s)))
}

func TestSuperAdminPassesAdminGuards(t *testing.T) {
	s := newSession(t)
	signIn(t, s, "root@x.com")

	assert.Equal(t, http.StatusNoContent, serve(RequireAdmin(s)))
	assert.Equal(t, http.StatusNoContent, serve(RequireSuperAdmin(s)))
}

func TestGuardReadsSessionFromContext(t *testing.T) {
	s := newSession(t)
	signIn(t, s, "agent@x.com")

	var seen *goSession.Session
	h := WithSession(s)(RequireAnyRole(nil, "agent")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = goSession.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Same(t, s, seen)
}

func TestGuardAfterSignOut(t *testing.T) {
	s := newSession(t)
	signIn(t, s, "agent@x.com")
	s.SignOut(t.Context(), "")

	assert.Equal(t, http.StatusUnauthorized, serve(RequireAnyRole(s, "agent")))
}

func TestGuardRefreshesBeforeRoleCheck(t *testing.T) {
	s, a, c := newClockedSession(t)
	signIn(t, s, "root@x.com")
	require.Equal(t, http.StatusNoContent, serve(RequireAdmin(s)))

	a.RevokeAll()
	c.Advance(2 * time.Hour)

	assert.Equal(t, http.StatusUnauthorized, serve(RequireAdmin(s)))
	assert.Equal(t, goSession.StateRefreshFailed, s.State().Kind)
	assert.Equal(t, 1, a.Calls(authtest.EndpointRefresh))
}

func TestGuardSeesRolesFetchedOnRefresh(t *testing.T) {
	s, a, c := newClockedSession(t)
	signIn(t, s, "root@x.com")
	require.Equal(t, http.StatusNoContent, serve(RequireSuperAdmin(s)))

	a.SetRoles("9", []authtest.Role{{ID: "1", Name: "agent"}})
	c.Advance(2 * time.Hour)

	assert.Equal(t, http.StatusForbidden, serve(RequireSuperAdmin(s)))
	assert.Equal(t, http.StatusNoContent, serve(RequireAnyRole(s, "agent")))
	assert.Equal(t, goSession.StateAuthenticated, s.State().Kind)
}
