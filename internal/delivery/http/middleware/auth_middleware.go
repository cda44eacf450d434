package middleware

import (
	"context"
	"net/http"

	"skincare-client/internal/domain"
	"skincare-client/pkg/utils"
)

// SessionSource reports the active session.
type SessionSource interface {
	IsAuthenticated() bool
	User() *domain.User
}

// RequireSession rejects requests while no user is logged in and puts the
// current user into the request context.
func RequireSession(sessions SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := sessions.User()
			if !sessions.IsAuthenticated() || user == nil {
				utils.WriteError(w, http.StatusUnauthorized, "Unauthorized: no active session")
				return
			}

			ctx := context.WithValue(r.Context(), domain.UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the user set by RequireSession.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(domain.UserContextKey).(*domain.User)
	return user, ok && user != nil
}
