package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/access"
	"github.com/MrEthical07/authgate/internal/respond"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type providerRequest struct {
	Credential string `json:"credential" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

type userView struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email,omitempty"`
	Role        access.Role `json:"role"`
	Guest       bool        `json:"isGuest"`
	Permissions []string    `json:"permissions,omitempty"`
}

func viewOf(id *authgate.Identity) userView {
	v := userView{
		ID:       id.ID,
		Username: id.Username,
		Email:    id.Email,
		Role:     id.Role,
		Guest:    id.Guest,
	}
	if id.Guest {
		v.Permissions = id.Permissions.Actions()
	}
	return v
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !a.decode(w, r, &req, false) {
		return
	}

	id, err := a.engine.Register(r.Context(), authgate.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respond.Error(w, r, a.log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]any{
		"message": "user registered successfully",
		"user":    viewOf(id),
	})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decode(w, r, &req, false) {
		return
	}

	pair, err := a.engine.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respond.Error(w, r, a.log, err)
		return
	}
	a.setSessionCookies(w, pair)
	respond.JSON(w, http.StatusOK, map[string]any{
		"message":      "login successful",
		"user":         viewOf(pair.Identity),
		"token":        pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (a *API) guest(w http.ResponseWriter, r *http.Request) {
	session, err := a.engine.GuestLogin(r.Context())
	if err != nil {
		respond.Error(w, r, a.log, err)
		return
	}
	a.setCookie(w, accessCookie, session.AccessToken, session.ExpiresAt)
	respond.JSON(w, http.StatusOK, map[string]any{
		"message":   "guest login successful",
		"user":      viewOf(session.Identity),
		"token":     session.AccessToken,
		"expiresIn": int64(session.ExpiresIn / time.Second),
	})
}

func (a *API) google(w http.ResponseWriter, r *http.Request) {
	var req providerRequest
	if !a.decode(w, r, &req, false) {
		return
	}

	pair, id, err := a.engine.LoginWithProvider(r.Context(), req.Credential)
	if err != nil {
		respond.Error(w, r, a.log, err)
		return
	}
	a.setSessionCookies(w, pair)
	respond.JSON(w, http.StatusOK, map[string]any{
		"message":      "google login successful",
		"user":         viewOf(id),
		"token":        pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !a.decode(w, r, &req, true) {
		return
	}
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		if c, err := r.Cookie(refreshCookie); err == nil {
			raw = c.Value
		}
	}

	pair, err := a.engine.Refresh(r.Context(), raw)
	if err != nil {
		respond.Error(w, r, a.log, err)
		return
	}
	body := map[string]any{
		"message": "token refreshed successfully",
		"token":   pair.AccessToken,
	}
	a.setCookie(w, accessCookie, pair.AccessToken, pair.AccessExpiresAt)
	if pair.RefreshToken != "" {
		body["refreshToken"] = pair.RefreshToken
		a.setCookie(w, refreshCookie, pair.RefreshToken, pair.RefreshExpiresAt)
	}
	respond.JSON(w, http.StatusOK, body)
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	id, _ := authgate.IdentityFromContext(r.Context())
	if err := a.engine.Logout(r.Context(), id); err != nil {
		respond.Error(w, r, a.log, err)
		return
	}
	a.clearCookie(w, accessCookie)
	a.clearCookie(w, refreshCookie)
	respond.JSON(w, http.StatusOK, map[string]any{
		"message": "logged out successfully",
		"success": true,
	})
}

func (a *API) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !a.decode(w, r, &req, false) {
		return
	}

	id, _ := authgate.IdentityFromContext(r.Context())
	if err := a.engine.ChangePassword(r.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		respond.Error(w, r, a.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"message": "password changed successfully",
	})
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	id, _ := authgate.IdentityFromContext(r.Context())
	respond.JSON(w, http.StatusOK, map[string]any{
		"message": "user profile retrieved",
		"user":    viewOf(id),
	})
}

func (a *API) user(w http.ResponseWriter, r *http.Request) {
	rec, err := a.users.FindByID(r.Context(), muxID(r))
	if err != nil {
		respond.Error(w, r, a.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"message": "user retrieved",
		"user":    viewOf(rec.Identity()),
	})
}

func (a *API) notFound(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusNotFound, map[string]any{
		"error": "route not found",
		"code":  respond.CodeNotFound,
	})
}

func (a *API) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusMethodNotAllowed, map[string]any{
		"error": "method not allowed",
		"code":  respond.CodeInvalidInput,
	})
}

// decode reads a JSON body into dst and validates it. An empty body is
// accepted only when optional is set.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		respond.Error(w, r, a.log, fmt.Errorf("%w: malformed JSON body", authgate.ErrInvalidInput))
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		respond.Error(w, r, a.log, fmt.Errorf("%w: %s", authgate.ErrInvalidInput, describe(err)))
		return false
	}
	return true
}

func describe(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
