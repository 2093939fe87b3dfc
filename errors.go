package authgate

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authgate/password"
)

var (
	// ErrInvalidInput is returned when required request fields are missing or malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials is returned for unknown users and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginRateLimited is wrapped by the RateLimitError returned from a throttled login.
	ErrLoginRateLimited = errors.New("too many login attempts, please try again later")
	// ErrRefreshTokenMissing is returned when Refresh receives an empty token.
	ErrRefreshTokenMissing = errors.New("refresh token required")
	// ErrTokenExpired is returned when a presented refresh token has expired.
	ErrTokenExpired = errors.New("token expired")
	// ErrRefreshInvalid is returned when a refresh token fails verification for any reason but expiry.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshRevoked is returned when a valid refresh token is no longer the recorded one.
	ErrRefreshRevoked = errors.New("invalid or expired refresh token")
	// ErrForbidden is returned when the caller may not perform the operation.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrWrongCurrentPassword is returned by ChangePassword when the current password does not match.
	ErrWrongCurrentPassword = errors.New("current password is incorrect")
	// ErrPasswordTooWeak is returned when a new password fails the strength policy.
	// It is the password package's sentinel, so policy errors match directly.
	ErrPasswordTooWeak = password.ErrTooWeak
	// ErrPasswordReuse is returned when the new password equals the current one.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrProviderCredentialInvalid is returned when the identity provider rejects a credential.
	ErrProviderCredentialInvalid = errors.New("invalid provider credential")
	// ErrProviderNotConfigured is returned by LoginWithProvider when no provider was wired.
	ErrProviderNotConfigured = errors.New("identity provider not configured")
	// ErrAccountExists is returned when registering a taken username.
	ErrAccountExists = errors.New("username already taken")
	// ErrUserNotFound is returned by user stores for missing records.
	ErrUserNotFound = errors.New("user not found")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RateLimitError reports a throttled login.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s (retry after %ds)", ErrLoginRateLimited.Error(), int64(e.RetryAfter/time.Second))
}

// Unwrap returns ErrLoginRateLimited.
func (e *RateLimitError) Unwrap() error {
	return ErrLoginRateLimited
}
