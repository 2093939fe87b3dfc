package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/internal/respond"
	"github.com/go-logr/logr"
)

// RefreshWarningHeader is set on responses whose access token is close to
// expiry.
const RefreshWarningHeader = "X-Token-Refresh-Warning"

// Verifier verifies access tokens. *authgate.Engine satisfies it.
type Verifier interface {
	VerifyAccess(ctx context.Context, raw string) (*authgate.Verification, error)
}

// Options configures token extraction.
type Options struct {
	// CookieName is the cookie checked after the Authorization header.
	CookieName string
	// QueryParam is the query parameter checked last.
	QueryParam string
	Logger     logr.Logger
}

func (o Options) withDefaults() Options {
	if o.CookieName == "" {
		o.CookieName = "token"
	}
	if o.QueryParam == "" {
		o.QueryParam = "token"
	}
	if o.Logger.GetSink() == nil {
		o.Logger = logr.Discard()
	}
	return o
}

// Authenticate rejects requests without a valid access token and attaches
// the verified identity to the request context.
func Authenticate(v Verifier, opts Options) func(http.Handler) http.Handler {
	opts = opts.withDefaults()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := ExtractToken(r, opts.CookieName, opts.QueryParam)
			if !ok {
				respond.Error(w, r, opts.Logger, respond.ErrNoToken)
				return
			}

			res, err := v.VerifyAccess(r.Context(), raw)
			if err != nil {
				respond.Error(w, r, opts.Logger, err)
				return
			}
			if res.RefreshSuggested {
				w.Header().Set(RefreshWarningHeader, "true")
			}

			ctx := authgate.WithIdentity(r.Context(), res.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Optional attaches the identity when a valid token is present and
// otherwise passes the request through anonymously.
func Optional(v Verifier, opts Options) func(http.Handler) http.Handler {
	opts = opts.withDefaults()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := ExtractToken(r, opts.CookieName, opts.QueryParam)
			if ok {
				if res, err := v.VerifyAccess(r.Context(), raw); err == nil {
					r = r.WithContext(authgate.WithIdentity(r.Context(), res.Identity))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ExtractToken returns the first non-empty token from the Authorization
// bearer header, the cookie, then the query parameter.
func ExtractToken(r *http.Request, cookieName, queryParam string) (string, bool) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token, true
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value, true
		}
	}
	if queryParam != "" {
		if token := r.URL.Query().Get(queryParam); token != "" {
			return token, true
		}
	}
	return "", false
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
