package middleware

import (
	"net/http"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/internal/respond"
	"github.com/MrEthical07/authgate/ratelimit"
	"github.com/go-logr/logr"
	"github.com/juju/clock"
)

// RateLimitOptions configures RateLimit.
type RateLimitOptions struct {
	Clock  clock.Clock
	Logger logr.Logger
	// OnLimited is called for every rejected request.
	OnLimited func(r *http.Request)
}

// RateLimit applies limiter per identity id, falling back to the client IP
// for anonymous requests. Limiter backend failures are 500s.
func RateLimit(limiter ratelimit.Limiter, opts RateLimitOptions) func(http.Handler) http.Handler {
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + clientIP(r)
			if identity, ok := authgate.IdentityFromContext(r.Context()); ok {
				key = "id:" + identity.ID
			}

			if err := limiter.Allow(r.Context(), key, opts.Clock.Now()); err != nil {
				if opts.OnLimited != nil && isLimited(err) {
					opts.OnLimited(r)
				}
				respond.Error(w, r, opts.Logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isLimited(err error) bool {
	p := respond.Classify(err)
	return p.Status == http.StatusTooManyRequests
}
