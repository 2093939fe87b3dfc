package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
)

// DefaultClientOrigin is the browser origin admitted when none is configured.
const DefaultClientOrigin = "http://localhost:5173"

// CORS admits credentialed cross-origin requests from origins. It must wrap
// the whole router so preflights are answered before route method matching.
// An empty list falls back to DefaultClientOrigin.
func CORS(origins ...string) func(http.Handler) http.Handler {
	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 {
		allowed = []string{DefaultClientOrigin}
	}
	return handlers.CORS(
		handlers.AllowedOrigins(allowed),
		handlers.AllowCredentials(),
		handlers.AllowedMethods([]string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
}
