package middleware

import (
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// ContentType creates middleware that requires application/json on mutating requests
func ContentType(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
				contentType := r.Header.Get("Content-Type")
				if contentType != "" {
					mediaType, _, err := mime.ParseMediaType(contentType)
					if err != nil || !strings.EqualFold(mediaType, "application/json") {
						respondErrorJSON(w, r, http.StatusUnsupportedMediaType,
							"Unsupported Media Type", "Content-Type must be application/json", logger)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
