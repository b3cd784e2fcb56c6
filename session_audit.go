package goSession

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/remote"
)

const (
	auditEventSignInSuccess         = "sign_in_success"
	auditEventSignInFailure         = "sign_in_failure"
	auditEventSecondFactorRequired  = "second_factor_required"
	auditEventSecondFactorSuccess   = "second_factor_success"
	auditEventSecondFactorFailure   = "second_factor_failure"
	auditEventRefreshSuccess        = "refresh_success"
	auditEventRefreshFailure        = "refresh_failure"
	auditEventPrincipalRefetchError = "principal_refetch_failure"
	auditEventRolesDegraded         = "roles_degraded"
	auditEventSignOut               = "sign_out"
	auditEventRestoreSuccess        = "restore_success"
	auditEventRestoreFailure        = "restore_failure"
)

// AuditErrorCode is the error classification recorded in audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrInvalidSecondFactor AuditErrorCode = "invalid_second_factor"
	auditErrBootstrapFailed     AuditErrorCode = "bootstrap_failed"
	auditErrRefreshToken        AuditErrorCode = "refresh_token_error"
	auditErrTransport           AuditErrorCode = "transport"
	auditErrNoPersistedSession  AuditErrorCode = "no_persisted_session"
	auditErrSuperseded          AuditErrorCode = "superseded"
	auditErrRolesUnavailable    AuditErrorCode = "roles_unavailable"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrInvalidSecondFactor):
		return auditErrInvalidSecondFactor
	case errors.Is(err, ErrSessionBootstrapFailed):
		return auditErrBootstrapFailed
	case errors.Is(err, ErrRefreshToken):
		return auditErrRefreshToken
	case errors.Is(err, ErrTransport):
		return auditErrTransport
	case errors.Is(err, ErrNoPersistedSession):
		return auditErrNoPersistedSession
	case errors.Is(err, ErrSuperseded):
		return auditErrSuperseded
	default:
		return auditErrInternal
	}
}

// emitAudit records one lifecycle event. Tokens and codes are never part of
// an event.
func (s *Session) emitAudit(ctx context.Context, eventType, userID string, success bool, code AuditErrorCode, metadata map[string]string) {
	if s == nil || s.audit == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	requestID, _ := remote.RequestIDFromContext(ctx)
	s.audit.Emit(ctx, AuditEvent{
		Timestamp: s.now(),
		EventType: eventType,
		UserID:    userID,
		RequestID: requestID,
		State:     s.State().Kind.String(),
		Success:   success,
		Error:     string(code),
		Metadata:  metadata,
	})
}
