package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"prospect-platform/backend/internal/platform/logger"
	"prospect-platform/backend/internal/platform/response"
)

// Authorizer decides whether a user type holds a permission.
type Authorizer interface {
	Allow(ctx context.Context, userType, permission string) (bool, error)
}

// Require rejects callers whose user type lacks permission with 403. It must run after Authenticate.
func Require(authz Authorizer, permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, ok := IdentityFrom(r.Context())
			if !ok {
				response.Failure(w, http.StatusUnauthorized, "missing or invalid authorization")
				return
			}
			allowed, err := authz.Allow(r.Context(), sub.UserType, permission)
			if err != nil {
				logger.FromContext(r.Context()).Error("authorization failed",
					zap.String("permission", permission), zap.Error(err))
			}
			if err != nil || !allowed {
				response.Failure(w, http.StatusForbidden, "permission denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
