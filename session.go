package goSession

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/rolegate"
	"github.com/MrEthical07/goSession/store"
	"golang.org/x/sync/singleflight"
)

// Session owns one client-side sign-in: the state machine, the token pair
// and the principal. It is safe for concurrent use. Build it with [New].
type Session struct {
	config  Config
	store   store.Store
	logger  *slog.Logger
	now     func() time.Time
	flows   flows.Deps
	policy  rolegate.Policy
	metrics *Metrics
	audit   *audit.Dispatcher

	mu        sync.Mutex
	kind      StateKind
	principal *Principal
	roles     rolegate.Set
	hintID    string
	tokens    *flows.TokenPair
	// epoch changes on every sign-in, restore, sign-out and established
	// session. Results computed under an older epoch are not committed.
	epoch uint64
	seq   uint64

	refreshGroup singleflight.Group

	persistMu    sync.Mutex
	persistedSeq uint64

	subMu        sync.Mutex
	subs         map[uint64]func(State)
	nextSub      uint64
	publishedSeq atomic.Uint64

	closed atomic.Bool
}

type persistMode uint8

const (
	persistNone persistMode = iota
	persistSave
	persistClear
)

// transition carries the side effects of a state change out of s.mu.
type transition struct {
	seq    uint64
	state  State
	mode   persistMode
	record *store.Record
}

// changedLocked snapshots the state after a mutation. Callers apply the
// result with finish once s.mu is released.
func (s *Session) changedLocked(mode persistMode) transition {
	s.seq++
	tr := transition{
		seq:   s.seq,
		state: s.stateLocked(),
		mode:  mode,
	}
	if mode == persistSave && s.tokens != nil && s.principal != nil {
		tr.record = &store.Record{
			UserID:               s.principal.ID,
			Email:                s.principal.Email,
			AccessToken:          s.tokens.AccessToken,
			RefreshToken:         s.tokens.RefreshToken,
			AccessTokenExpiresAt: s.tokens.AccessTokenExpiresAt,
			SavedAt:              s.now(),
		}
	} else if mode == persistSave {
		tr.mode = persistNone
	}
	return tr
}

func (s *Session) finish(ctx context.Context, tr transition) {
	s.persist(ctx, tr)
	s.publish(tr)
}

// persist applies tr to the store. Writes are serialized and a write older
// than one already applied is skipped. Failures are logged and counted only.
func (s *Session) persist(ctx context.Context, tr transition) {
	if s.store == nil || tr.mode == persistNone {
		return
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if tr.seq <= s.persistedSeq {
		return
	}
	s.persistedSeq = tr.seq

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.Remote.Timeout)
	defer cancel()

	var err error
	op := "save"
	switch tr.mode {
	case persistSave:
		err = s.store.Save(ctx, tr.record)
	case persistClear:
		op = "clear"
		err = s.store.Clear(ctx)
	}
	if err != nil {
		s.metrics.Inc(MetricPersistFailure)
		s.logger.WarnContext(ctx, "session persistence failed",
			slog.String("op", op),
			slog.Any("error", err),
		)
	}
}

func (s *Session) publish(tr transition) {
	for {
		last := s.publishedSeq.Load()
		if tr.seq <= last {
			return
		}
		if s.publishedSeq.CompareAndSwap(last, tr.seq) {
			break
		}
	}

	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(tr.state)
	}
}

// resetLocked drops tokens, principal and hint and moves to kind.
func (s *Session) resetLocked(kind StateKind) {
	s.kind = kind
	s.principal = nil
	s.roles = rolegate.Set{}
	s.hintID = ""
	s.tokens = nil
}

func (s *Session) stateLocked() State {
	st := State{Kind: s.kind}
	switch s.kind {
	case StateAuthenticated, StateRefreshFailed:
		st.Principal = s.principal.clone()
	case StateAwaitingSecondFactor:
		st.PrincipalHintID = s.hintID
	}
	return st
}

// stateErrLocked returns the error AccessToken reports for a session that
// holds no usable tokens, or nil when it does.
func (s *Session) stateErrLocked() error {
	switch s.kind {
	case StateAuthenticated:
		if s.tokens == nil {
			return ErrNotAuthenticated
		}
		return nil
	case StateAuthenticating:
		return ErrSessionNotReady
	case StateAwaitingSecondFactor:
		return ErrSecondFactorPending
	case StateRefreshFailed:
		return ErrRefreshToken
	default:
		return ErrNotAuthenticated
	}
}

func (s *Session) needsRefresh(expiresAt time.Time) bool {
	return !s.now().Before(expiresAt.Add(-s.config.Tokens.RefreshBuffer))
}

func toPrincipal(rec flows.PrincipalRecord) *Principal {
	p := &Principal{
		ID:    rec.ID,
		Email: rec.Email,
		Name:  rec.Name,
		Roles: make([]RoleAssignment, 0, len(rec.Roles)),
	}
	for _, r := range rec.Roles {
		p.Roles = append(p.Roles, RoleAssignment{
			Code:        r.Code,
			Permissions: append([]string(nil), r.Permissions...),
		})
	}
	return p
}

func roleSet(p *Principal) rolegate.Set {
	if p == nil {
		return rolegate.Set{}
	}
	assignments := make([]rolegate.Assignment, 0, len(p.Roles))
	for _, r := range p.Roles {
		assignments = append(assignments, rolegate.Assignment{
			Code:        r.Code,
			Permissions: r.Permissions,
		})
	}
	return rolegate.NewSet(assignments)
}

/*
====================================
READ ACCESSORS
====================================
*/

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Principal returns a copy of the signed-in principal. In StateRefreshFailed
// it returns the last known principal for "you were signed out" messaging.
// In every other state it returns nil.
func (s *Session) Principal() *Principal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kind != StateAuthenticated && s.kind != StateRefreshFailed {
		return nil
	}
	return s.principal.clone()
}

// Config returns a copy of the active configuration.
func (s *Session) Config() Config {
	return cloneConfig(s.config)
}

/*
====================================
ROLE GATE
====================================
*/

// Authorize is the gate read for callers acting on behalf of a request. It
// applies the refresh rule of [Session.AccessToken] first, so an expired
// session is refreshed (and its roles re-fetched) or moved to
// StateRefreshFailed before allow sees it. A nil allow only requires a
// usable session. The returned error is the AccessToken error.
func (s *Session) Authorize(ctx context.Context, allow func(*Session) bool) (bool, error) {
	if _, err := s.token(ctx); err != nil {
		return false, err
	}
	if allow == nil {
		return true, nil
	}
	return allow(s), nil
}

// HasAnyRole reports whether the principal holds at least one of codes.
// Every role check is false outside StateAuthenticated and for an empty
// code list.
//
// The Has and Is readers inspect the current snapshot without refreshing.
// Request paths should call them through [Session.Authorize].
func (s *Session) HasAnyRole(codes ...string) bool {
	return s.checkRoles(rolegate.Any, codes...)
}

// HasAllRoles reports whether the principal holds every one of codes.
func (s *Session) HasAllRoles(codes ...string) bool {
	return s.checkRoles(rolegate.All, codes...)
}

// HasRoles evaluates codes in the given mode.
func (s *Session) HasRoles(mode rolegate.Mode, codes ...string) bool {
	return s.checkRoles(mode, codes...)
}

// HasPermission reports whether any held role grants the permission code.
func (s *Session) HasPermission(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kind != StateAuthenticated {
		return false
	}
	return s.roles.HasPermission(code)
}

// IsAdmin reports whether the principal holds one of Roles.AdminRoles.
func (s *Session) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kind != StateAuthenticated {
		return false
	}
	return s.policy.IsAdmin(s.roles)
}

// IsSuperAdmin reports whether the principal holds Roles.SuperAdminRole.
func (s *Session) IsSuperAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kind != StateAuthenticated {
		return false
	}
	return s.policy.IsSuperAdmin(s.roles)
}

func (s *Session) checkRoles(mode rolegate.Mode, codes ...string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kind != StateAuthenticated {
		return false
	}
	return s.roles.Check(mode, codes...)
}

/*
====================================
LIFECYCLE
====================================
*/

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that caused the change and may be called
// concurrently; a snapshot older than one already delivered is skipped.
// The returned func unsubscribes.
func (s *Session) Subscribe(fn func(State)) func() {
	if fn == nil {
		return func() {}
	}

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// Close flushes the audit dispatcher and rejects further sign-in, restore
// and token operations with ErrSessionClosed. It does not sign out; the
// persisted record survives for a later Restore.
func (s *Session) Close() {
	if s == nil {
		return
	}
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.audit != nil {
		s.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped under backpressure
// or because the emitting context ended first.
func (s *Session) AuditDropped() uint64 {
	if s == nil || s.audit == nil {
		return 0
	}
	return s.audit.Dropped()
}

// AuditFailed returns the number of audit events lost to a panicking sink.
func (s *Session) AuditFailed() uint64 {
	if s == nil || s.audit == nil {
		return 0
	}
	return s.audit.Failed()
}

// MetricsSnapshot returns a copy of every counter and histogram.
func (s *Session) MetricsSnapshot() MetricsSnapshot {
	if s == nil || s.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return s.metrics.Snapshot()
}
