package middleware

import (
	"context"
	"net/http"
	"slices"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity stored by [Require].
func IdentityFromContext(ctx context.Context) (goSession.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(goSession.Identity)
	return id, ok
}

// IdentitySource reports the active principal. *goSession.Manager implements it.
type IdentitySource interface {
	Identity() (goSession.Identity, bool)
}

// Require admits a request only while a session is active, and, when kinds is not empty,
// only for one of those principal kinds. It answers 401 without a session and 403 for
// the wrong kind. Admitted requests carry the identity in their context.
func Require(src IdentitySource, kinds ...session.Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if src == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			id, ok := src.Identity()
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if len(kinds) > 0 && !slices.Contains(kinds, id.Kind) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin is Require for admin sessions.
func RequireAdmin(src IdentitySource) func(http.Handler) http.Handler {
	return Require(src, session.KindAdmin)
}

// RequireUser is Require for user sessions.
func RequireUser(src IdentitySource) func(http.Handler) http.Handler {
	return Require(src, session.KindUser)
}
