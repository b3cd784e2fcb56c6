package goSession

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/remote"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

func drainEvents(sink *ChannelSink) []AuditEvent {
	var out []AuditEvent
	for {
		select {
		case ev := <-sink.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	env := newTestEnv(t, func(b *Builder) {
		b.WithAuditSink(sink)
		b.config.Audit.Enabled = false
	})

	_, _ = env.session.SignInWithCredentials(t.Context(), "a@x.com", "wrong")
	env.session.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditSignInEventsCarryFieldsButNoSecrets(t *testing.T) {
	sink := NewChannelSink(32)
	env := newTestEnv(t, func(b *Builder) {
		b.WithAuditSink(sink)
	})
	s := env.session

	ctx := remote.WithRequestID(t.Context(), "req-123")
	if _, err := s.SignInWithCredentials(ctx, "a@x.com", "super-secret-password"); err == nil {
		t.Fatalf("expected wrong password to fail")
	}
	if _, err := s.SignInWithCredentials(ctx, "a@x.com", "correct"); err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	token, _ := s.AccessToken(ctx)
	s.Close()

	events := drainEvents(sink)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	failure, success := events[0], events[1]
	if failure.EventType != auditEventSignInFailure || failure.Success || failure.Error != string(auditErrInvalidCredentials) {
		t.Fatalf("unexpected failure event %+v", failure)
	}
	if success.EventType != auditEventSignInSuccess || !success.Success || success.UserID != "7" {
		t.Fatalf("unexpected success event %+v", success)
	}
	if success.State != StateAuthenticated.String() {
		t.Fatalf("expected state %q, got %q", StateAuthenticated, success.State)
	}
	for _, ev := range events {
		if ev.RequestID != "req-123" {
			t.Fatalf("expected request id on %s, got %q", ev.EventType, ev.RequestID)
		}
		data, _ := json.Marshal(ev)
		if bytes.Contains(data, []byte("super-secret-password")) || strings.Contains(string(data), token) {
			t.Fatalf("secret leaked in %s", data)
		}
	}
}

func TestAuditRefreshAndSignOutEvents(t *testing.T) {
	sink := NewChannelSink(32)
	env := newTestEnv(t, func(b *Builder) {
		b.WithAuditSink(sink)
	})
	s := env.session
	env.signIn(t)

	env.clock.Advance(26 * time.Minute)
	if _, err := s.AccessToken(t.Context()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	s.SignOut(t.Context(), "")
	s.Close()

	seen := map[string]bool{}
	for _, ev := range drainEvents(sink) {
		seen[ev.EventType] = true
	}
	for _, want := range []string{auditEventSignInSuccess, auditEventRefreshSuccess, auditEventSignOut} {
		if !seen[want] {
			t.Fatalf("expected %s event, got %v", want, seen)
		}
	}
}

func TestAuditJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	env := newTestEnv(t, func(b *Builder) {
		b.WithAuditSink(NewJSONWriterSink(&buf))
	})
	env.signIn(t)
	env.session.Close()

	line := strings.TrimSpace(buf.String())
	var ev AuditEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", line, err)
	}
	if ev.EventType != auditEventSignInSuccess {
		t.Fatalf("unexpected event %+v", ev)
	}
	if env.session.AuditDropped() != 0 {
		t.Fatalf("expected no drops")
	}
}

func TestAuditErrorCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{ErrInvalidCredentials, auditErrInvalidCredentials},
		{&RemoteError{Kind: ErrInvalidSecondFactor}, auditErrInvalidSecondFactor},
		{&RemoteError{Kind: ErrSessionBootstrapFailed}, auditErrBootstrapFailed},
		{&RemoteError{Kind: ErrRefreshToken}, auditErrRefreshToken},
		{&RemoteError{Kind: ErrTransport}, auditErrTransport},
		{ErrNoPersistedSession, auditErrNoPersistedSession},
		{ErrSuperseded, auditErrSuperseded},
		{context.Canceled, auditErrInternal},
	}
	for _, tc := range cases {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Fatalf("%v: expected %q, got %q", tc.err, tc.want, got)
		}
	}
}

type panicSink struct{}

func (panicSink) Emit(context.Context, AuditEvent) { panic("sink down") }

func TestAuditPanickingSinkDoesNotBreakSession(t *testing.T) {
	env := newTestEnv(t, func(b *Builder) {
		b.WithAuditSink(panicSink{})
	})
	env.signIn(t)
	env.session.SignOut(t.Context(), "")
	env.session.Close()

	if got := env.session.AuditFailed(); got != 2 {
		t.Fatalf("expected two failed deliveries, got %d", got)
	}
	if env.session.State().Kind != StateUnauthenticated {
		t.Fatalf("expected Unauthenticated after sign out")
	}
}
