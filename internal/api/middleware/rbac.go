package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightpath-dev/opsdesk/internal/models"
)

// RequireRole returns middleware that requires specific roles.
func RequireRole(allowedRoles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userRole := GetRole(r.Context())
			if userRole == "" {
				jsonForbidden(w)
				return
			}

			// Check if user has any of the allowed roles
			for _, role := range allowedRoles {
				if userRole == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			// Super admin always has access
			if userRole.IsSuperAdmin() {
				next.ServeHTTP(w, r)
				return
			}

			jsonForbidden(w)
		})
	}
}

// RequireSuperAdmin is shorthand for RequireRole(RoleSuperAdmin).
func RequireSuperAdmin(next http.Handler) http.Handler {
	return RequireRole(models.RoleSuperAdmin)(next)
}

// RequireProjectManager allows project managers and super admins.
func RequireProjectManager(next http.Handler) http.Handler {
	return RequireRole(models.RoleProjectManager)(next)
}

// RequireSalesManager allows sales managers and super admins.
func RequireSalesManager(next http.Handler) http.Handler {
	return RequireRole(models.RoleSalesManager)(next)
}

// RequireSales allows anyone on the sales side plus super admins.
func RequireSales(next http.Handler) http.Handler {
	return RequireRole(models.RoleSalesManager, models.RoleSalesExecutive)(next)
}

// RequireAdminOrSelf allows access if user is super admin or accessing
// their own resource. Expects {id} URL parameter.
func RequireAdminOrSelf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := GetUserID(r.Context())
		userRole := GetRole(r.Context())

		// Super admin has access to everything
		if userRole.IsSuperAdmin() {
			next.ServeHTTP(w, r)
			return
		}

		// Check if accessing own resource
		resourceID := chi.URLParam(r, "id")
		if resourceID != "" && resourceID == userID {
			next.ServeHTTP(w, r)
			return
		}

		jsonForbidden(w)
	})
}
