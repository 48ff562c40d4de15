package tokenAuth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventSignInSuccess  = "signin_success"
	auditEventSignInFailure  = "signin_failure"
	auditEventGateAccepted   = "gate_access_valid"
	auditEventGateRenewed    = "gate_renewed"
	auditEventGateRejected   = "gate_rejected"
	auditEventBearerRejected = "bearer_rejected"
	auditEventSignOut        = "signout"
	auditEventSessionRevoked = "session_revoked"
)

// AuditErrorCode is the stable failure label stored in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrUnknownUser        AuditErrorCode = "unknown_user"
	auditErrBadCredentials     AuditErrorCode = "bad_credentials"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrNoTokens           AuditErrorCode = "no_tokens"
	auditErrRefreshInvalid     AuditErrorCode = "refresh_invalid"
	auditErrSessionInvalid     AuditErrorCode = "session_invalid"
	auditErrMissingToken       AuditErrorCode = "missing_token"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrCancelled          AuditErrorCode = "cancelled"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnknownUser):
		return auditErrUnknownUser
	case errors.Is(err, ErrBadCredentials):
		return auditErrBadCredentials
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrNoTokens):
		return auditErrNoTokens
	case errors.Is(err, ErrRefreshInvalid):
		return auditErrRefreshInvalid
	case errors.Is(err, ErrSessionInvalid):
		return auditErrSessionInvalid
	case errors.Is(err, ErrMissingBearer):
		return auditErrMissingToken
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return auditErrCancelled
	default:
		return auditErrInternal
	}
}
