package goSession

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrEthical07/goSession/internal/flows"
)

// AccessToken returns a usable access token. Inside the refresh buffer, or
// past expiry, it refreshes first; concurrent callers holding the same
// refresh token share one network refresh. Outside the buffer it returns
// the cached token without any I/O.
//
// A failed refresh moves the session to StateRefreshFailed and returns an
// error matching ErrRefreshToken. Other states return ErrNotAuthenticated,
// ErrSessionNotReady or ErrSecondFactorPending. Cancelling ctx abandons the
// wait but not the shared refresh, which still commits its result.
//
//	Flow: Authenticated -> Authenticated | RefreshFailed
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	tokens, err := s.token(ctx)
	if err != nil {
		return "", err
	}
	return tokens.AccessToken, nil
}

func (s *Session) token(ctx context.Context) (flows.TokenPair, error) {
	if s.closed.Load() {
		return flows.TokenPair{}, ErrSessionClosed
	}

	s.mu.Lock()
	if err := s.stateErrLocked(); err != nil {
		s.mu.Unlock()
		return flows.TokenPair{}, err
	}
	tokens := *s.tokens
	s.mu.Unlock()

	if !s.needsRefresh(tokens.AccessTokenExpiresAt) {
		return tokens, nil
	}

	started := false
	ch := s.refreshGroup.DoChan(tokens.RefreshToken, func() (any, error) {
		started = true
		return s.refresh(context.WithoutCancel(ctx), tokens.RefreshToken)
	})

	select {
	case <-ctx.Done():
		return flows.TokenPair{}, ctx.Err()
	case r := <-ch:
		if !started {
			s.metrics.Inc(MetricRefreshShared)
		}
		if r.Err != nil {
			return flows.TokenPair{}, r.Err
		}
		return r.Val.(flows.TokenPair), nil
	}
}

// refresh runs inside the singleflight group keyed by rt.
func (s *Session) refresh(ctx context.Context, rt string) (flows.TokenPair, error) {
	s.mu.Lock()
	if err := s.stateErrLocked(); err != nil {
		s.mu.Unlock()
		return flows.TokenPair{}, err
	}
	if s.tokens.RefreshToken != rt || !s.needsRefresh(s.tokens.AccessTokenExpiresAt) {
		// Already rotated by a refresh that finished after the caller read rt.
		current := *s.tokens
		s.mu.Unlock()
		return current, nil
	}
	epoch := s.epoch
	userID := s.principal.ID
	s.mu.Unlock()

	res := s.callRefresh(ctx, rt)

	s.mu.Lock()
	if s.kind != StateAuthenticated || s.tokens == nil || s.tokens.RefreshToken != rt {
		s.metrics.Inc(MetricRefreshDiscarded)
		err := s.stateErrLocked()
		var current flows.TokenPair
		if err == nil {
			current = *s.tokens
		}
		s.mu.Unlock()
		return current, err
	}

	if res.Failure != flows.RefreshFailureNone {
		s.kind = StateRefreshFailed
		s.tokens = nil
		tr := s.changedLocked(persistClear)
		s.mu.Unlock()
		s.finish(ctx, tr)

		err := &RemoteError{Kind: ErrRefreshToken, Status: res.Status, Err: res.Err}
		s.logger.WarnContext(ctx, "token refresh failed",
			slog.String("user_id", userID),
			slog.Int("status", res.Status),
			slog.Any("error", res.Err),
		)
		s.emitAudit(ctx, auditEventRefreshFailure, userID, false, auditErrorCode(err), nil)
		return flows.TokenPair{}, err
	}

	tokens := res.Tokens
	s.tokens = &tokens
	tr := s.changedLocked(persistSave)
	s.mu.Unlock()
	s.finish(ctx, tr)
	s.emitAudit(ctx, auditEventRefreshSuccess, userID, true, "", nil)

	if s.config.Roles.RefetchOnRefresh {
		s.refetchPrincipal(ctx, epoch, tokens)
	}
	return tokens, nil
}

// refetchPrincipal replaces the principal after a refresh. A failure keeps
// the previous principal and the new tokens.
func (s *Session) refetchPrincipal(ctx context.Context, epoch uint64, tokens flows.TokenPair) {
	res := flows.RunBootstrap(ctx, tokens.AccessToken, s.flows.Bootstrap)
	if res.Failure != flows.BootstrapFailureNone {
		s.metrics.Inc(MetricPrincipalRefetchFailure)
		s.logger.WarnContext(ctx, "principal re-fetch after refresh failed, keeping previous principal",
			slog.Int("status", res.Status),
			slog.Any("error", res.Err),
		)
		s.emitAudit(ctx, auditEventPrincipalRefetchError, s.principalID(), false, auditErrBootstrapFailed, nil)
		return
	}
	s.noteDegradedRoles(ctx, res)

	s.mu.Lock()
	if s.epoch != epoch || s.kind != StateAuthenticated {
		s.mu.Unlock()
		return
	}
	s.principal = toPrincipal(res.Principal)
	s.roles = roleSet(s.principal)
	tr := s.changedLocked(persistSave)
	s.mu.Unlock()
	s.finish(ctx, tr)
}

// callRefresh performs the network refresh and records its outcome.
func (s *Session) callRefresh(ctx context.Context, rt string) flows.RefreshResult {
	start := time.Now()
	res := flows.RunRefresh(ctx, rt, s.flows.Refresh)
	s.metrics.Observe(MetricRefreshLatency, time.Since(start))

	if res.Failure != flows.RefreshFailureNone {
		s.metrics.Inc(MetricRefreshFailure)
	} else {
		s.metrics.Inc(MetricRefreshSuccess)
	}
	return res
}
