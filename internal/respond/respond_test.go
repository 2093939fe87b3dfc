package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/access"
	"github.com/MrEthical07/authgate/ratelimit"
	"github.com/MrEthical07/authgate/token"
	"github.com/go-logr/logr"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"no token", ErrNoToken, http.StatusUnauthorized, CodeNoToken},
		{"expired", fmt.Errorf("%w: exp", token.ErrExpired), http.StatusUnauthorized, CodeTokenExpired},
		{"wrong kind", token.ErrWrongKind, http.StatusUnauthorized, CodeInvalidTokenType},
		{"not yet valid", token.ErrNotYetValid, http.StatusUnauthorized, CodeTokenNotActive},
		{"malformed", token.ErrMalformed, http.StatusUnauthorized, CodeInvalidToken},
		{"refresh invalid", fmt.Errorf("%w: bad", authgate.ErrRefreshInvalid), http.StatusUnauthorized, CodeInvalidToken},
		{"credentials", authgate.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCreds},
		{"unauthenticated", access.ErrUnauthenticated, http.StatusUnauthorized, CodeNoAuth},
		{"guest", errors.Join(access.ErrForbidden, access.ErrGuestForbidden), http.StatusForbidden, CodeGuestForbidden},
		{"role mismatch", &access.RoleError{Required: []access.Role{access.RoleAdmin}, Current: access.RoleUser}, http.StatusForbidden, CodeForbidden},
		{"forbidden", access.ErrForbidden, http.StatusForbidden, CodeForbidden},
		{"revoked", authgate.ErrRefreshRevoked, http.StatusForbidden, CodeRefreshRevoked},
		{"no refresh", authgate.ErrRefreshTokenMissing, http.StatusBadRequest, CodeNoRefreshToken},
		{"weak", fmt.Errorf("%w: short", authgate.ErrPasswordTooWeak), http.StatusBadRequest, CodeWeakPassword},
		{"wrong password", authgate.ErrWrongCurrentPassword, http.StatusBadRequest, CodeWrongPassword},
		{"exists", authgate.ErrAccountExists, http.StatusConflict, CodeAccountExists},
		{"not found", authgate.ErrUserNotFound, http.StatusNotFound, CodeNotFound},
		{"login limited", &authgate.RateLimitError{RetryAfter: time.Minute}, http.StatusTooManyRequests, CodeRateLimitExceeded},
		{"api limited", &ratelimit.ExceededError{RetryAfter: time.Minute}, http.StatusTooManyRequests, CodeRateLimitExceeded},
		{"unknown", errors.New("db exploded"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Classify(tc.err)
			if p.Status != tc.status || p.Code != tc.code {
				t.Fatalf("Classify = %d %s, want %d %s", p.Status, p.Code, tc.status, tc.code)
			}
		})
	}
}

func TestClassifyHidesDetail(t *testing.T) {
	p := Classify(fmt.Errorf("%w: signature is invalid", token.ErrMalformed))
	if p.Message != token.ErrMalformed.Error() {
		t.Fatalf("message = %q", p.Message)
	}
	p = Classify(errors.New("secret connection string"))
	if p.Message != "internal server error" {
		t.Fatalf("message = %q", p.Message)
	}
}

func TestErrorWritesRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)

	Error(rec, req, logr.Discard(), &ratelimit.ExceededError{RetryAfter: 900 * time.Second})

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "900" {
		t.Fatalf("Retry-After = %q", got)
	}
	var body struct {
		Error      string `json:"error"`
		Code       string `json:"code"`
		RetryAfter int64  `json:"retryAfter"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != CodeRateLimitExceeded || body.RetryAfter != 900 || body.Error == "" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestErrorWritesRoleMismatch(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/admin/users/u1", nil)

	Error(rec, req, logr.Discard(), &access.RoleError{
		Required: []access.Role{access.RoleAdmin},
		Current:  access.RoleUser,
	})

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Code     string   `json:"code"`
		Required []string `json:"required"`
		Current  string   `json:"current"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != CodeForbidden || body.Current != "user" || len(body.Required) != 1 || body.Required[0] != "admin" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestErrorOmitsRolesForPlainForbidden(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), logr.Discard(), access.ErrForbidden)

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["required"]; ok {
		t.Fatalf("plain forbidden carried roles: %v", body)
	}
}
