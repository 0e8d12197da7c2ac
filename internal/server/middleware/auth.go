package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"prospect-platform/backend/internal/platform/logger"
	"prospect-platform/backend/internal/platform/response"
	"prospect-platform/backend/internal/security"
)

const bearerPrefix = "bearer "

// TokenValidator decodes an access token into its subject.
type TokenValidator interface {
	ValidateAccess(token string) (security.Subject, error)
}

// Authenticate validates the Bearer access token and stores the caller in the request context.
// Requests without a valid token get a 401 failure envelope.
func Authenticate(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				response.Failure(w, http.StatusUnauthorized, "missing or invalid authorization")
				return
			}
			sub, err := tokens.ValidateAccess(token)
			if err != nil {
				response.Failure(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := WithIdentity(r.Context(), sub)
			ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(zap.String("user_id", sub.UserID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearer returns the Bearer token from the Authorization header, or "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
