package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/store"
)

// SignInWithCredentials runs the first factor. It may be called from any
// state; a pending or established session is replaced.
//
// On success the session is StateAuthenticated and the result has OK set.
// When the account has a second factor the session waits in
// StateAwaitingSecondFactor and the result carries the principal hint id.
// Any error leaves the session StateUnauthenticated. Rejections match
// ErrInvalidCredentials, unreachable or failing backends match ErrTransport
// and a missing principal or malformed response matches
// ErrSessionBootstrapFailed.
//
//	Flow: Unauthenticated -> Authenticating -> Authenticated | AwaitingSecondFactor
//	Performance: 1 round-trip, plus 2 for the principal and its roles.
func (s *Session) SignInWithCredentials(ctx context.Context, email, password string) (SignInResult, error) {
	if s.closed.Load() {
		return SignInResult{}, ErrSessionClosed
	}

	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.resetLocked(StateAuthenticating)
	tr := s.changedLocked(persistClear)
	s.mu.Unlock()
	s.finish(ctx, tr)

	res := flows.RunLogin(ctx, email, password, s.flows.Login)
	if res.Failure != flows.LoginFailureNone {
		err := loginError(res)
		s.abandon(ctx, epoch)
		s.metrics.Inc(MetricSignInFailure)
		s.emitAudit(ctx, auditEventSignInFailure, "", false, auditErrorCode(err), nil)
		return SignInResult{}, err
	}

	if res.RequiresSecondFactor {
		s.mu.Lock()
		if s.epoch != epoch {
			s.mu.Unlock()
			return SignInResult{}, ErrSuperseded
		}
		s.kind = StateAwaitingSecondFactor
		s.hintID = res.PrincipalHintID
		tr := s.changedLocked(persistNone)
		s.mu.Unlock()
		s.finish(ctx, tr)

		s.metrics.Inc(MetricSecondFactorRequired)
		s.emitAudit(ctx, auditEventSecondFactorRequired, res.PrincipalHintID, true, "", nil)
		return SignInResult{RequiresSecondFactor: true, UserID: res.PrincipalHintID}, nil
	}

	p, err := s.establish(ctx, epoch, res.Tokens)
	if err != nil {
		s.metrics.Inc(MetricSignInFailure)
		s.emitAudit(ctx, auditEventSignInFailure, "", false, auditErrorCode(err), nil)
		return SignInResult{}, err
	}

	s.metrics.Inc(MetricSignInSuccess)
	s.emitAudit(ctx, auditEventSignInSuccess, p.ID, true, "", nil)
	return SignInResult{OK: true}, nil
}

// VerifySecondFactor submits a TOTP or backup code for the pending sign-in.
// userID may be empty or must equal the hint returned by
// SignInWithCredentials; otherwise ErrNoSecondFactorPending is returned.
//
// A rejected or malformed code matches ErrInvalidSecondFactor and a
// transport failure matches ErrTransport; both keep the session in
// StateAwaitingSecondFactor with the same hint so the caller can retry or
// switch code kind. A malformed acceptance or a failed principal load
// matches ErrSessionBootstrapFailed and returns to StateUnauthenticated.
//
//	Flow: AwaitingSecondFactor -> Authenticated | AwaitingSecondFactor | Unauthenticated
func (s *Session) VerifySecondFactor(ctx context.Context, userID, code string, isBackupCode bool) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	s.mu.Lock()
	if s.kind != StateAwaitingSecondFactor || (userID != "" && userID != s.hintID) {
		s.mu.Unlock()
		return ErrNoSecondFactorPending
	}
	hint := s.hintID
	epoch := s.epoch
	s.mu.Unlock()

	kind := flows.CodeTOTP
	if isBackupCode {
		kind = flows.CodeBackup
	}
	meta := map[string]string{"code_kind": codeKindName(kind)}

	res := flows.RunVerifySecondFactor(ctx, hint, code, kind, s.flows.SecondFactor)
	switch res.Failure {
	case flows.SecondFactorFailureNone:
	case flows.SecondFactorFailureInvalidCode, flows.SecondFactorFailureRejected:
		err := &RemoteError{Kind: ErrInvalidSecondFactor, Status: res.Status, Message: res.Message, Err: res.Err}
		s.metrics.Inc(MetricSecondFactorFailure)
		s.emitAudit(ctx, auditEventSecondFactorFailure, hint, false, auditErrorCode(err), meta)
		return err
	case flows.SecondFactorFailureTransport:
		err := &RemoteError{Kind: ErrTransport, Status: res.Status, Message: res.Message, Err: res.Err}
		s.emitAudit(ctx, auditEventSecondFactorFailure, hint, false, auditErrorCode(err), meta)
		return err
	default:
		err := &RemoteError{Kind: ErrSessionBootstrapFailed, Status: res.Status, Message: res.Message, Err: res.Err}
		s.abandon(ctx, epoch)
		s.metrics.Inc(MetricSecondFactorFailure)
		s.emitAudit(ctx, auditEventSecondFactorFailure, hint, false, auditErrorCode(err), meta)
		return err
	}

	p, err := s.establish(ctx, epoch, res.Tokens)
	if err != nil {
		s.metrics.Inc(MetricSecondFactorFailure)
		s.emitAudit(ctx, auditEventSecondFactorFailure, hint, false, auditErrorCode(err), meta)
		return err
	}

	s.metrics.Inc(MetricSecondFactorSuccess)
	if isBackupCode {
		s.metrics.Inc(MetricBackupCodeUsed)
	}
	s.emitAudit(ctx, auditEventSecondFactorSuccess, p.ID, true, "", meta)
	return nil
}

// SignOut ends the session from any state, clears the persisted record and
// returns redirectTarget sanitized by [SanitizeRedirect]. An in-flight
// sign-in or refresh that finishes afterwards is discarded.
func (s *Session) SignOut(ctx context.Context, redirectTarget string) string {
	s.mu.Lock()
	s.epoch++
	var userID string
	if s.principal != nil {
		userID = s.principal.ID
	}
	s.resetLocked(StateUnauthenticated)
	tr := s.changedLocked(persistClear)
	s.mu.Unlock()
	s.finish(ctx, tr)

	s.metrics.Inc(MetricSignOut)
	s.emitAudit(ctx, auditEventSignOut, userID, true, "", nil)
	return SanitizeRedirect(redirectTarget)
}

// Restore rebuilds an authenticated session from the persisted record:
// it refreshes first when the access token is inside the refresh buffer and
// then reloads the principal. Roles are always re-fetched, never persisted.
//
// ErrNoPersistedSession is returned when persistence is disabled or nothing
// is stored. Any other failure clears the record and leaves the session
// StateUnauthenticated, except a store outage, which keeps the record.
func (s *Session) Restore(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if s.store == nil {
		return ErrNoPersistedSession
	}

	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.resetLocked(StateAuthenticating)
	tr := s.changedLocked(persistNone)
	s.mu.Unlock()
	s.finish(ctx, tr)

	err := s.restore(ctx, epoch)
	if err != nil {
		s.metrics.Inc(MetricRestoreFailure)
		s.emitAudit(ctx, auditEventRestoreFailure, "", false, auditErrorCode(err), nil)
		return err
	}

	s.metrics.Inc(MetricRestoreSuccess)
	s.emitAudit(ctx, auditEventRestoreSuccess, s.principalID(), true, "", nil)
	return nil
}

func (s *Session) restore(ctx context.Context, epoch uint64) error {
	rec, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.abandonKeepStore(ctx, epoch)
		return ErrNoPersistedSession
	case err != nil:
		s.abandonKeepStore(ctx, epoch)
		return fmt.Errorf("restore session: %w", err)
	case !rec.Valid():
		s.abandon(ctx, epoch)
		return fmt.Errorf("%w: persisted record is incomplete", ErrSessionBootstrapFailed)
	}

	tokens := flows.TokenPair{
		AccessToken:          rec.AccessToken,
		RefreshToken:         rec.RefreshToken,
		AccessTokenExpiresAt: rec.AccessTokenExpiresAt,
	}
	if s.needsRefresh(tokens.AccessTokenExpiresAt) {
		res := s.callRefresh(ctx, rec.RefreshToken)
		if res.Failure != flows.RefreshFailureNone {
			s.abandon(ctx, epoch)
			return &RemoteError{Kind: ErrRefreshToken, Status: res.Status, Err: res.Err}
		}
		tokens = res.Tokens
	}

	_, err = s.establish(ctx, epoch, tokens)
	return err
}

// RefreshPrincipal reloads the principal and its roles with a valid access
// token, refreshing it first if needed. On failure the current principal is
// kept and an error matching ErrSessionBootstrapFailed is returned.
func (s *Session) RefreshPrincipal(ctx context.Context) error {
	tokens, err := s.token(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	res := flows.RunBootstrap(ctx, tokens.AccessToken, s.flows.Bootstrap)
	if res.Failure != flows.BootstrapFailureNone {
		s.metrics.Inc(MetricPrincipalRefetchFailure)
		return &RemoteError{Kind: ErrSessionBootstrapFailed, Status: res.Status, Message: res.Message, Err: res.Err}
	}
	s.noteDegradedRoles(ctx, res)

	s.mu.Lock()
	if s.epoch != epoch || s.kind != StateAuthenticated {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.principal = toPrincipal(res.Principal)
	s.roles = roleSet(s.principal)
	tr := s.changedLocked(persistSave)
	s.mu.Unlock()
	s.finish(ctx, tr)
	return nil
}

// establish loads the principal for tokens and commits StateAuthenticated
// if no newer sign-in, restore or sign-out started since epoch.
func (s *Session) establish(ctx context.Context, epoch uint64, tokens flows.TokenPair) (*Principal, error) {
	res := flows.RunBootstrap(ctx, tokens.AccessToken, s.flows.Bootstrap)
	if res.Failure != flows.BootstrapFailureNone {
		s.abandon(ctx, epoch)
		return nil, &RemoteError{Kind: ErrSessionBootstrapFailed, Status: res.Status, Message: res.Message, Err: res.Err}
	}
	s.noteDegradedRoles(ctx, res)

	p := toPrincipal(res.Principal)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return nil, ErrSuperseded
	}
	s.epoch++
	s.kind = StateAuthenticated
	s.principal = p
	s.roles = roleSet(p)
	s.hintID = ""
	s.tokens = &tokens
	tr := s.changedLocked(persistSave)
	s.mu.Unlock()
	s.finish(ctx, tr)

	return p.clone(), nil
}

// abandon returns to StateUnauthenticated and clears the store, unless a
// newer operation already owns the session.
func (s *Session) abandon(ctx context.Context, epoch uint64) {
	s.abandonMode(ctx, epoch, persistClear)
}

func (s *Session) abandonKeepStore(ctx context.Context, epoch uint64) {
	s.abandonMode(ctx, epoch, persistNone)
}

func (s *Session) abandonMode(ctx context.Context, epoch uint64, mode persistMode) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	s.resetLocked(StateUnauthenticated)
	tr := s.changedLocked(mode)
	s.mu.Unlock()
	s.finish(ctx, tr)
}

func (s *Session) noteDegradedRoles(ctx context.Context, res flows.BootstrapResult) {
	if !res.RolesDegraded {
		return
	}
	s.metrics.Inc(MetricRolesDegraded)
	s.logger.WarnContext(ctx, "roles unavailable, continuing with no roles",
		slog.String("user_id", res.Principal.ID),
		slog.Any("error", res.RolesErr),
	)
	s.emitAudit(ctx, auditEventRolesDegraded, res.Principal.ID, false, auditErrRolesUnavailable, nil)
}

func (s *Session) principalID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principal == nil {
		return ""
	}
	return s.principal.ID
}

func loginError(res flows.LoginResult) error {
	kind := ErrSessionBootstrapFailed
	switch res.Failure {
	case flows.LoginFailureRejected:
		kind = ErrInvalidCredentials
	case flows.LoginFailureTransport:
		kind = ErrTransport
	}
	return &RemoteError{Kind: kind, Status: res.Status, Message: res.Message, Err: res.Err}
}

func codeKindName(kind flows.CodeKind) string {
	if kind == flows.CodeBackup {
		return "backup"
	}
	return "totp"
}
