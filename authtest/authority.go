package authtest

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/remote"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Endpoint names used by [Authority.Calls].
const (
	EndpointLogin        = "login"
	EndpointVerify       = "verify"
	EndpointRefresh      = "refresh"
	EndpointMe           = "me"
	EndpointRoles        = "roles"
	defaultAccessTTL     = 30 * time.Minute
	defaultIssuer        = "authtest"
	invalidCredentials   = "Incorrect email or password"
	invalidCode          = "Invalid verification code"
	invalidRefreshDetail = "Invalid or expired refresh token"
)

// Role is one role held by a [User].
type Role struct {
	ID          string
	Name        string
	Code        string
	Permissions []string
}

// User is an account known to the authority. A non-empty TOTPSecret turns
// on the second factor.
type User struct {
	ID          string
	Email       string
	Password    string
	Name        string
	Roles       []Role
	TOTPSecret  []byte
	BackupCodes []string
}

// Option configures an [Authority].
type Option func(*Authority)

// WithClock sets the time source used for token issuance, JWT validation
// and TOTP verification.
func WithClock(now func() time.Time) Option {
	return func(a *Authority) {
		if now != nil {
			a.now = now
		}
	}
}

// WithAccessTTL sets the exp claim lifetime of issued access tokens.
func WithAccessTTL(d time.Duration) Option {
	return func(a *Authority) {
		if d > 0 {
			a.accessTTL = d
		}
	}
}

// WithoutRotation makes refresh return only a new access token, keeping
// the refresh token valid.
func WithoutRotation() Option {
	return func(a *Authority) {
		a.rotate = false
	}
}

// Authority is a fake authentication backend served over httptest.
type Authority struct {
	srv       *httptest.Server
	key       []byte
	now       func() time.Time
	accessTTL time.Duration
	rotate    bool

	mu          sync.Mutex
	users       map[string]*User
	byID        map[string]*User
	refresh     map[string]string
	lastRefresh map[string]string
	calls       map[string]int
	failStatus  map[string]int
	refreshGate chan struct{}
}

// New starts an authority and registers its shutdown with t.Cleanup.
func New(t testing.TB, opts ...Option) *Authority {
	t.Helper()

	a, err := NewServer(opts...)
	if err != nil {
		t.Fatalf("start authority: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

// NewServer starts an authority outside a test. The caller must Close it.
func NewServer(opts ...Option) (*Authority, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}

	a := &Authority{
		key:         key,
		now:         time.Now,
		accessTTL:   defaultAccessTTL,
		rotate:      true,
		users:       make(map[string]*User),
		byID:        make(map[string]*User),
		refresh:     make(map[string]string),
		lastRefresh: make(map[string]string),
		calls:       make(map[string]int),
		failStatus:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(a)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", a.handleLogin)
	mux.HandleFunc("POST /auth/2fa/verify", a.handleVerify)
	mux.HandleFunc("POST /auth/refresh", a.handleRefresh)
	mux.HandleFunc("GET /auth/me", a.handleMe)
	mux.HandleFunc("GET /users/{id}/roles", a.handleRoles)

	a.srv = httptest.NewServer(mux)
	return a, nil
}

// Close shuts the server down.
func (a *Authority) Close() {
	a.srv.Close()
}

// URL returns the base URL of the server.
func (a *Authority) URL() string {
	return a.srv.URL
}

// Client returns an HTTP client configured for the server.
func (a *Authority) Client() *http.Client {
	return a.srv.Client()
}

// AddUser registers u, replacing any user with the same email.
func (a *Authority) AddUser(u User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	stored := u
	stored.BackupCodes = append([]string(nil), u.BackupCodes...)
	a.users[strings.ToLower(u.Email)] = &stored
	a.byID[u.ID] = &stored
}

// SetRoles replaces the roles of the user with id.
func (a *Authority) SetRoles(id string, roles []Role) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if u, ok := a.byID[id]; ok {
		u.Roles = append([]Role(nil), roles...)
	}
}

// Fail makes endpoint answer with status until cleared with status 0.
func (a *Authority) Fail(endpoint string, status int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if status == 0 {
		delete(a.failStatus, endpoint)
		return
	}
	a.failStatus[endpoint] = status
}

// HoldRefresh blocks refresh requests until the returned func is called.
func (a *Authority) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	a.mu.Lock()
	a.refreshGate = gate
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			a.refreshGate = nil
			a.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns how many requests endpoint has received.
func (a *Authority) Calls(endpoint string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[endpoint]
}

// LastRefreshToken returns the most recent refresh token issued to userID.
func (a *Authority) LastRefreshToken(userID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastRefresh[userID]
}

// RevokeAll invalidates every outstanding refresh token.
func (a *Authority) RevokeAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refresh = make(map[string]string)
}

// CurrentTOTP returns the valid code for the user with id at the
// authority's current time.
func (a *Authority) CurrentTOTP(id string) string {
	a.mu.Lock()
	u := a.byID[id]
	a.mu.Unlock()
	if u == nil {
		return ""
	}
	return TOTPCode(u.TOTPSecret, a.now())
}

/*
====================================
HANDLERS
====================================
*/

// begin counts the call and reports an injected failure status.
func (a *Authority) begin(endpoint string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls[endpoint]++
	return a.failStatus[endpoint]
}

func (a *Authority) handleLogin(w http.ResponseWriter, r *http.Request) {
	if status := a.begin(EndpointLogin); status != 0 {
		writeDetail(w, status, "login unavailable")
		return
	}

	var req remote.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	a.mu.Lock()
	u, ok := a.users[strings.ToLower(strings.TrimSpace(req.Email))]
	a.mu.Unlock()
	if !ok || u.Password != req.Password {
		writeDetail(w, http.StatusUnauthorized, invalidCredentials)
		return
	}

	if len(u.TOTPSecret) > 0 {
		writeJSON(w, http.StatusOK, remote.TokenResponse{
			RequiresTwoFactor: true,
			UserID:            remote.ID(u.ID),
		})
		return
	}

	a.writeTokens(w, u.ID)
}

func (a *Authority) handleVerify(w http.ResponseWriter, r *http.Request) {
	if status := a.begin(EndpointVerify); status != 0 {
		writeDetail(w, status, "verification unavailable")
		return
	}

	var req remote.VerifySecondFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	a.mu.Lock()
	u, ok := a.byID[req.UserID.String()]
	accepted := false
	if ok {
		if req.IsBackupCode {
			for i, c := range u.BackupCodes {
				if c == req.Code {
					u.BackupCodes = append(u.BackupCodes[:i], u.BackupCodes[i+1:]...)
					accepted = true
					break
				}
			}
		} else {
			accepted = verifyTOTP(u.TOTPSecret, req.Code, a.now())
		}
	}
	a.mu.Unlock()

	if !accepted {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"detail": []map[string]string{{"msg": invalidCode}},
		})
		return
	}

	a.writeTokens(w, u.ID)
}

func (a *Authority) handleRefresh(w http.ResponseWriter, r *http.Request) {
	status := a.begin(EndpointRefresh)

	a.mu.Lock()
	gate := a.refreshGate
	a.mu.Unlock()
	if gate != nil {
		<-gate
	}

	if status != 0 {
		writeDetail(w, status, invalidRefreshDetail)
		return
	}

	token, ok := bearer(r)
	a.mu.Lock()
	userID, known := a.refresh[token]
	if ok && known && a.rotate {
		delete(a.refresh, token)
	}
	a.mu.Unlock()
	if !ok || !known {
		writeDetail(w, http.StatusUnauthorized, invalidRefreshDetail)
		return
	}

	if !a.rotate {
		access, err := a.mintAccess(userID)
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, remote.TokenResponse{AccessToken: access, TokenType: "bearer"})
		return
	}

	a.writeTokens(w, userID)
}

func (a *Authority) handleMe(w http.ResponseWriter, r *http.Request) {
	if status := a.begin(EndpointMe); status != 0 {
		writeDetail(w, status, "principal unavailable")
		return
	}

	u, err := a.authenticate(r)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, remote.MeResponse{
		ID:       remote.ID(u.ID),
		Email:    u.Email,
		FullName: u.Name,
	})
}

func (a *Authority) handleRoles(w http.ResponseWriter, r *http.Request) {
	if status := a.begin(EndpointRoles); status != 0 {
		writeDetail(w, status, "roles unavailable")
		return
	}

	u, err := a.authenticate(r)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}
	if r.PathValue("id") != u.ID {
		writeDetail(w, http.StatusForbidden, "not allowed")
		return
	}

	a.mu.Lock()
	out := make([]remote.RoleResponse, 0, len(u.Roles))
	for _, role := range u.Roles {
		out = append(out, remote.RoleResponse{
			ID:          remote.ID(role.ID),
			Name:        role.Name,
			Code:        role.Code,
			Permissions: append([]string(nil), role.Permissions...),
		})
	}
	a.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

/*
====================================
TOKENS
====================================
*/

func (a *Authority) writeTokens(w http.ResponseWriter, userID string) {
	access, err := a.mintAccess(userID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	refresh := "rt-" + uuid.NewString()
	a.mu.Lock()
	a.refresh[refresh] = userID
	a.lastRefresh[userID] = refresh
	a.mu.Unlock()

	writeJSON(w, http.StatusOK, remote.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	})
}

func (a *Authority) mintAccess(userID string) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		Issuer:    defaultIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.accessTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
}

func (a *Authority) authenticate(r *http.Request) (*User, error) {
	token, ok := bearer(r)
	if !ok {
		return nil, errors.New("missing bearer token")
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithIssuer(defaultIssuer),
	)
	if err != nil {
		return nil, errors.New("invalid access token")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.byID[claims.Subject]
	if !ok {
		return nil, errors.New("unknown subject")
	}
	return u, nil
}

func bearer(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, prefix) || len(h) == len(prefix) {
		return "", false
	}
	return h[len(prefix):], true
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
