package auth

import (
	"net/http"

	"github.com/BradenHooton/authtrail/internal/models"
	pkghttp "github.com/BradenHooton/authtrail/pkg/http"
)

// RequireScope creates middleware that enforces a scope on the calling service.
// Must be mounted after ServiceAuth.
func RequireScope(requiredScope string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetServiceFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			if !models.HasScope(claims.Scopes, requiredScope) {
				pkghttp.WriteForbidden(w, "insufficient scope")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyScope allows access if ANY of the provided scopes match
func RequireAnyScope(requiredScopes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetServiceFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			for _, scope := range requiredScopes {
				if models.HasScope(claims.Scopes, scope) {
					next.ServeHTTP(w, r)
					return
				}
			}

			pkghttp.WriteForbidden(w, "insufficient scope")
		})
	}
}
