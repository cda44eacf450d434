package middleware

import (
	"net/http"

	"skincare-client/pkg/utils"
)

// AdminMiddleware ensures the session user has the admin role.
// MUST be used AFTER RequireSession.
func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized: no user in context")
			return
		}

		if !user.IsAdmin() {
			utils.WriteError(w, http.StatusForbidden, "Forbidden: admins only")
			return
		}

		next.ServeHTTP(w, r)
	})
}
