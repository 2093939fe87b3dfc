// Package httpapi serves the authgate HTTP API on a gorilla/mux router.
//
// Routes live under /api/auth and /api/users. Error bodies are
// {"error", "code"} as rendered by internal/respond.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/access"
	"github.com/MrEthical07/authgate/middleware"
	"github.com/MrEthical07/authgate/ratelimit"
	"github.com/go-logr/logr"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/juju/clock"
)

const (
	accessCookie  = "token"
	refreshCookie = "refresh_token"
)

// Config wires the router's collaborators.
type Config struct {
	Engine *authgate.Engine
	Users  authgate.UserStore
	// Limiter is the per-identity API quota for /me and /users/{id}. When
	// nil an in-memory limiter is built from the engine's RateLimit config.
	Limiter ratelimit.Limiter
	Clock   clock.Clock
	Logger  logr.Logger
	// TrustProxy takes the client IP from X-Forwarded-For.
	TrustProxy bool
	// SecureCookies marks token cookies Secure.
	SecureCookies bool
	// EnableProvider registers POST /api/auth/google.
	EnableProvider bool
}

// API holds the handlers.
type API struct {
	engine   *authgate.Engine
	users    authgate.UserStore
	log      logr.Logger
	validate *validator.Validate
	secure   bool
}

// NewRouter builds the API router.
func NewRouter(cfg Config) (*mux.Router, error) {
	if cfg.Engine == nil || cfg.Users == nil {
		return nil, errors.New("httpapi: engine and user store are required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger.GetSink() == nil {
		cfg.Logger = logr.Discard()
	}
	limiter := cfg.Limiter
	if limiter == nil {
		rl := cfg.Engine.Config().RateLimit
		mem, err := ratelimit.NewMemory(ratelimit.Config{Window: rl.Window, Max: rl.Max})
		if err != nil {
			return nil, err
		}
		limiter = mem
	}

	a := &API{
		engine:   cfg.Engine,
		users:    cfg.Users,
		log:      cfg.Logger,
		validate: validator.New(),
		secure:   cfg.SecureCookies,
	}

	authn := middleware.Authenticate(cfg.Engine, middleware.Options{CookieName: accessCookie, Logger: cfg.Logger})
	limited := middleware.RateLimit(limiter, middleware.RateLimitOptions{
		Clock:     cfg.Clock,
		Logger:    cfg.Logger,
		OnLimited: func(*http.Request) { cfg.Engine.RecordRateLimitHit() },
	})
	registered := middleware.RequireRoles(cfg.Logger, access.RoleUser, access.RoleAdmin)
	anyRole := middleware.RequireRoles(cfg.Logger, access.RoleGuest, access.RoleUser, access.RoleAdmin)
	owner := middleware.RequireOwnership(cfg.Logger, a, "id")

	r := mux.NewRouter()
	r.Use(middleware.ClientIP(cfg.TrustProxy))
	r.NotFoundHandler = http.HandlerFunc(a.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(a.methodNotAllowed)

	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/register", a.register).Methods(http.MethodPost)
	auth.HandleFunc("/login", a.login).Methods(http.MethodPost)
	auth.HandleFunc("/guest", a.guest).Methods(http.MethodPost)
	if cfg.EnableProvider {
		auth.HandleFunc("/google", a.google).Methods(http.MethodPost)
	}
	auth.HandleFunc("/refresh", a.refresh).Methods(http.MethodPost)
	auth.Handle("/logout", authn(http.HandlerFunc(a.logout))).Methods(http.MethodPost)
	auth.Handle("/change-password", authn(registered(http.HandlerFunc(a.changePassword)))).Methods(http.MethodPost)
	auth.Handle("/me", authn(limited(http.HandlerFunc(a.me)))).Methods(http.MethodGet)

	users := r.PathPrefix("/api/users").Subrouter()
	users.Handle("/{id}", authn(limited(anyRole(owner(http.HandlerFunc(a.user)))))).Methods(http.MethodGet)

	return r, nil
}

// ResourceOwner implements middleware.OwnerResolver for user resources:
// a user owns their own record.
func (a *API) ResourceOwner(ctx context.Context, id string) (string, error) {
	rec, err := a.users.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}
