//go:build integration
// +build integration

package test

import (
	"sync"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/authtest"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const sessionKey = "gs:integration"

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

type integration struct {
	t         *testing.T
	mr        *miniredis.Miniredis
	rdb       *redis.Client
	authority *authtest.Authority
	clock     *clock
}

func newIntegration(t *testing.T) *integration {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	c := &clock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	a := authtest.New(t, authtest.WithClock(c.Now))
	a.AddUser(authtest.User{
		ID:       "7",
		Email:    "a@x.com",
		Password: "correct",
		Name:     "Alice Agent",
		Roles:    []authtest.Role{{ID: "1", Name: "agent"}},
	})

	return &integration{t: t, mr: mr, rdb: rdb, authority: a, clock: c}
}

// session builds a session sharing the Redis record with every other
// session of the same integration.
func (i *integration) session() *goSession.Session {
	i.t.Helper()

	cfg := goSession.DefaultConfig()
	cfg.Remote.BaseURL = i.authority.URL()
	cfg.Remote.Timeout = time.Second
	cfg.Persistence.RedisKey = sessionKey

	s, err := goSession.New().WithConfig(cfg).WithRedis(i.rdb).WithClock(i.clock.Now).Build()
	if err != nil {
		i.t.Fatalf("Build failed: %v", err)
	}
	i.t.Cleanup(s.Close)
	return s
}
