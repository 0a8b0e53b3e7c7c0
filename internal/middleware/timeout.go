package middleware

import (
	"net/http"
	"time"
)

// DefaultRequestTimeout is the maximum time a handler may spend on a request
const DefaultRequestTimeout = 30 * time.Second

// Timeout creates middleware that enforces a per-request deadline
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, `{"success":false,"error":"Request timeout"}`)
	}
}
