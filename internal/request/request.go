// Package request carries per-request values: the authenticated user and the
// client address derivation shared by logging and rate limiting.
package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/dearfuture/letterbox/internal/models"
)

type contextKey int

const userKey contextKey = iota

// WithUser attaches the authenticated user to the context
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or nil when the request
// never passed the auth middleware.
func UserFromContext(r *http.Request) *models.User {
	user, _ := r.Context().Value(userKey).(*models.User)
	return user
}

// ClientIP resolves the caller's address. Proxy headers win over the socket
// address; with X-Forwarded-For the first hop is the original client.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}
