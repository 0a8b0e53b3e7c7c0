package middleware

import "net/http"

// DefaultMaxRequestSize caps request bodies at 1MB. Letters top out at a few
// kilobytes, so anything near the cap is abuse.
const DefaultMaxRequestSize = 1 << 20

// RequestSizeLimit creates middleware that limits request body size
func RequestSizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
