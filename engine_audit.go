package authgate

import (
	"context"
	"errors"

	"github.com/MrEthical07/authgate/access"
	"github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/token"
)

// AuditErrorCode is the short error label recorded on failed audit events.
type AuditErrorCode string

const (
	auditErrUnauthenticated    AuditErrorCode = "unauthenticated"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrRefreshRevoked     AuditErrorCode = "refresh_revoked"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrWrongPassword      AuditErrorCode = "wrong_current_password"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrPasswordReuse      AuditErrorCode = "password_reuse"
	auditErrProviderInvalid    AuditErrorCode = "provider_credential_invalid"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identity *Identity,
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

	event := audit.Event{
		Timestamp: e.clock.Now().UTC(),
		Type:      eventType,
		IP:        ClientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if identity != nil {
		event.UserID = identity.ID
		event.Username = identity.Username
		event.Guest = identity.Guest
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
	case errors.Is(err, access.ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrForbidden), errors.Is(err, access.ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrTokenExpired), errors.Is(err, token.ErrExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrRefreshInvalid),
		errors.Is(err, token.ErrMalformed),
		errors.Is(err, token.ErrWrongKind),
		errors.Is(err, token.ErrWrongAudience),
		errors.Is(err, token.ErrNotYetValid):
		return auditErrInvalidToken
	case errors.Is(err, ErrRefreshRevoked):
		return auditErrRefreshRevoked
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrWrongCurrentPassword):
		return auditErrWrongPassword
	case errors.Is(err, ErrPasswordTooWeak):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrPasswordReuse):
		return auditErrPasswordReuse
	case errors.Is(err, ErrProviderCredentialInvalid):
		return auditErrProviderInvalid
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	default:
		return auditErrInternal
	}
}
