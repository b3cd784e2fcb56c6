package goSession

import (
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/authtest"
	"github.com/MrEthical07/goSession/store"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var (
	testTOTPSecret  = []byte("12345678901234567890")
	testBackupCodes = []string{"ABCD-1234", "EFGH-5678"}
)

type testEnv struct {
	session   *Session
	authority *authtest.Authority
	clock     *testClock
	store     *store.MemoryStore
}

func newTestAuthority(t testing.TB, clock *testClock) *authtest.Authority {
	t.Helper()

	a := authtest.New(t, authtest.WithClock(clock.Now))
	a.AddUser(authtest.User{
		ID:       "7",
		Email:    "a@x.com",
		Password: "correct",
		Name:     "Alice Agent",
		Roles: []authtest.Role{
			{ID: "1", Name: "agent", Permissions: []string{"tickets.read", "tickets.reply"}},
		},
	})
	a.AddUser(authtest.User{
		ID:          "42",
		Email:       "b@x.com",
		Password:    "correct",
		Name:        "Bob Admin",
		TOTPSecret:  testTOTPSecret,
		BackupCodes: testBackupCodes,
		Roles: []authtest.Role{
			{ID: "2", Name: "Administrator", Code: "admin"},
		},
	})
	return a
}

func newTestEnv(t testing.TB, mutate func(*Builder)) *testEnv {
	t.Helper()

	clock := newTestClock()
	a := newTestAuthority(t, clock)
	st := store.NewMemoryStore()

	b := New().
		WithBaseURL(a.URL()).
		WithHTTPClient(a.Client()).
		WithClock(clock.Now).
		WithStore(st).
		WithLatencyHistograms(true)
	if mutate != nil {
		mutate(b)
	}

	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(s.Close)

	return &testEnv{session: s, authority: a, clock: clock, store: st}
}

func (e *testEnv) signIn(t testing.TB) {
	t.Helper()
	res, err := e.session.SignInWithCredentials(t.Context(), "a@x.com", "correct")
	if err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected OK sign in, got %+v", res)
	}
}

// wrongTOTP returns a six digit code rejected at now.
func wrongTOTP(now time.Time) string {
	valid := map[string]bool{
		authtest.TOTPCode(testTOTPSecret, now.Add(-30*time.Second)): true,
		authtest.TOTPCode(testTOTPSecret, now):                      true,
		authtest.TOTPCode(testTOTPSecret, now.Add(30*time.Second)):  true,
	}
	for _, c := range []string{"000000", "111111", "222222", "333333"} {
		if !valid[c] {
			return c
		}
	}
	return "444444"
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}
