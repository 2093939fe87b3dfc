// Package respond writes JSON responses and maps authgate errors to HTTP
// status codes and stable error codes.
//
// # What this package must NOT do
//
//   - Leak wrapped error detail for authentication failures or 500s.
//   - Decide authorization; it only renders decisions made elsewhere.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/access"
	"github.com/MrEthical07/authgate/ratelimit"
	"github.com/MrEthical07/authgate/token"
	"github.com/go-logr/logr"
)

// ErrNoToken is reported when a protected route receives no access token.
var ErrNoToken = errors.New("access denied, no token provided")

// Error codes carried in the "code" field of error bodies.
const (
	CodeNoToken           = "NO_TOKEN"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeInvalidTokenType  = "INVALID_TOKEN_TYPE"
	CodeTokenNotActive    = "TOKEN_NOT_ACTIVE"
	CodeInvalidCreds      = "INVALID_CREDENTIALS"
	CodeNoAuth            = "NO_AUTH"
	CodeForbidden         = "FORBIDDEN"
	CodeGuestForbidden    = "GUEST_FORBIDDEN"
	CodeRefreshRevoked    = "REFRESH_REVOKED"
	CodeNoRefreshToken    = "NO_REFRESH_TOKEN"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeWeakPassword      = "WEAK_PASSWORD"
	CodeWrongPassword     = "WRONG_PASSWORD"
	CodeAccountExists     = "ACCOUNT_EXISTS"
	CodeNotFound          = "NOT_FOUND"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeInternal          = "INTERNAL"
)

// Problem is the rendering of one error.
type Problem struct {
	Status  int
	Code    string
	Message string
	// RetryAfter is set for rate-limit failures.
	RetryAfter time.Duration
	// Required and Current are set for role mismatches.
	Required []string
	Current  string
}

type rule struct {
	target error
	status int
	code   string
	// detail sends err.Error() instead of the sentinel's text.
	detail bool
}

// Order matters: the first matching rule wins.
var rules = []rule{
	{ErrNoToken, http.StatusUnauthorized, CodeNoToken, false},
	{access.ErrUnauthenticated, http.StatusUnauthorized, CodeNoAuth, false},
	{authgate.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCreds, false},
	{authgate.ErrProviderCredentialInvalid, http.StatusUnauthorized, CodeInvalidCreds, false},
	{authgate.ErrTokenExpired, http.StatusUnauthorized, CodeTokenExpired, false},
	{token.ErrExpired, http.StatusUnauthorized, CodeTokenExpired, false},
	{token.ErrWrongKind, http.StatusUnauthorized, CodeInvalidTokenType, false},
	{token.ErrNotYetValid, http.StatusUnauthorized, CodeTokenNotActive, false},
	{token.ErrMalformed, http.StatusUnauthorized, CodeInvalidToken, false},
	{token.ErrWrongAudience, http.StatusUnauthorized, CodeInvalidToken, false},
	{authgate.ErrRefreshInvalid, http.StatusUnauthorized, CodeInvalidToken, false},
	{access.ErrGuestForbidden, http.StatusForbidden, CodeGuestForbidden, false},
	{authgate.ErrForbidden, http.StatusForbidden, CodeForbidden, false},
	{access.ErrForbidden, http.StatusForbidden, CodeForbidden, false},
	{authgate.ErrRefreshRevoked, http.StatusForbidden, CodeRefreshRevoked, false},
	{authgate.ErrRefreshTokenMissing, http.StatusBadRequest, CodeNoRefreshToken, false},
	{authgate.ErrPasswordTooWeak, http.StatusBadRequest, CodeWeakPassword, true},
	{authgate.ErrPasswordReuse, http.StatusBadRequest, CodeInvalidInput, false},
	{authgate.ErrWrongCurrentPassword, http.StatusBadRequest, CodeWrongPassword, false},
	{authgate.ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput, true},
	{authgate.ErrAccountExists, http.StatusConflict, CodeAccountExists, false},
	{authgate.ErrUserNotFound, http.StatusNotFound, CodeNotFound, false},
}

// Classify maps err to a Problem. Unknown errors become a generic 500.
func Classify(err error) Problem {
	var loginLimited *authgate.RateLimitError
	if errors.As(err, &loginLimited) {
		return Problem{
			Status:     http.StatusTooManyRequests,
			Code:       CodeRateLimitExceeded,
			Message:    authgate.ErrLoginRateLimited.Error(),
			RetryAfter: loginLimited.RetryAfter,
		}
	}
	var exceeded *ratelimit.ExceededError
	if errors.As(err, &exceeded) {
		return Problem{
			Status:     http.StatusTooManyRequests,
			Code:       CodeRateLimitExceeded,
			Message:    ratelimit.ErrRateLimited.Error(),
			RetryAfter: exceeded.RetryAfter,
		}
	}

	var roleErr *access.RoleError
	if errors.As(err, &roleErr) {
		required := make([]string, len(roleErr.Required))
		for i, role := range roleErr.Required {
			required[i] = role.String()
		}
		return Problem{
			Status:   http.StatusForbidden,
			Code:     CodeForbidden,
			Message:  access.ErrForbidden.Error(),
			Required: required,
			Current:  roleErr.Current.String(),
		}
	}

	for _, r := range rules {
		if !errors.Is(err, r.target) {
			continue
		}
		msg := r.target.Error()
		if r.detail {
			msg = err.Error()
		}
		return Problem{Status: r.status, Code: r.code, Message: msg}
	}
	return Problem{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal server error"}
}

// Error writes the error body for err. 500s are logged with the cause.
func Error(w http.ResponseWriter, r *http.Request, log logr.Logger, err error) {
	p := Classify(err)
	if p.Status == http.StatusInternalServerError {
		log.Error(err, "request failed", "method", r.Method, "path", r.URL.Path)
	}

	body := map[string]any{
		"error": p.Message,
		"code":  p.Code,
	}
	if p.RetryAfter > 0 {
		secs := int64((p.RetryAfter + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
		body["retryAfter"] = secs
	}
	if p.Required != nil {
		body["required"] = p.Required
		body["current"] = p.Current
	}
	JSON(w, p.Status, body)
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
