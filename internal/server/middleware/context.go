// Package middleware holds the chi middleware stack: request logging, recovery, bearer
// authentication, permission checks, rate limiting, client IP and request telemetry.
package middleware

import (
	"context"

	"prospect-platform/backend/internal/security"
)

type contextKey struct{ name string }

var (
	identityKey = contextKey{"identity"}
	clientIPKey = contextKey{"client_ip"}
)

// WithIdentity returns a context carrying the caller decoded from the bearer token.
func WithIdentity(ctx context.Context, sub security.Subject) context.Context {
	return context.WithValue(ctx, identityKey, sub)
}

// IdentityFrom returns the caller set by WithIdentity and true, or a zero Subject and false.
func IdentityFrom(ctx context.Context) (security.Subject, bool) {
	v, ok := ctx.Value(identityKey).(security.Subject)
	return v, ok
}

// GetUserID returns the caller's user id and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	sub, ok := IdentityFrom(ctx)
	if !ok || sub.UserID == "" {
		return "", false
	}
	return sub.UserID, true
}

// WithClientIP returns a context carrying the request's client IP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFromContext returns the IP stored by WithClientIP, or "" if unset. It matches
// audit.IPExtractor.
func ClientIPFromContext(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey).(string)
	return v
}
