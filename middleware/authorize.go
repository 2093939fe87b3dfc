package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/access"
	"github.com/MrEthical07/authgate/internal/respond"
	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
)

// OwnerResolver returns the owner id of a resource, or an error wrapping
// authgate.ErrUserNotFound when the resource does not exist.
type OwnerResolver interface {
	ResourceOwner(ctx context.Context, resourceID string) (string, error)
}

// OwnerResolverFunc adapts a function to OwnerResolver.
type OwnerResolverFunc func(ctx context.Context, resourceID string) (string, error)

func (f OwnerResolverFunc) ResourceOwner(ctx context.Context, resourceID string) (string, error) {
	return f(ctx, resourceID)
}

// RequireAuth rejects requests that carry no identity.
func RequireAuth(log logr.Logger) func(http.Handler) http.Handler {
	return RequireRoles(log)
}

// RequireRoles authorizes the identity for the request's action (derived
// from the HTTP method) against roles. No roles admits any authenticated
// identity, guests still limited to their permission set.
func RequireRoles(log logr.Logger, roles ...access.Role) func(http.Handler) http.Handler {
	var guard access.Guard
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, _ := authgate.IdentityFromContext(r.Context())
			if err := guard.Authorize(identity.Subject(), roles, access.ActionForMethod(r.Method)); err != nil {
				respond.Error(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwnership resolves the owner of the resource named by the mux
// path variable param and requires the identity to own it (admins pass).
func RequireOwnership(log logr.Logger, resolver OwnerResolver, param string) func(http.Handler) http.Handler {
	var guard access.Guard
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := authgate.IdentityFromContext(r.Context())
			if !ok {
				respond.Error(w, r, log, access.ErrUnauthenticated)
				return
			}
			resourceID := mux.Vars(r)[param]
			if resourceID == "" {
				respond.Error(w, r, log, authgate.ErrInvalidInput)
				return
			}

			owner, err := resolver.ResourceOwner(r.Context(), resourceID)
			if err != nil {
				respond.Error(w, r, log, err)
				return
			}
			if err := guard.AuthorizeOwnership(identity.Subject(), owner); err != nil {
				respond.Error(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
