package middleware

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dearfuture/letterbox/internal/database"
	"github.com/dearfuture/letterbox/internal/models"
	"github.com/dearfuture/letterbox/internal/request"
	"github.com/dearfuture/letterbox/internal/services/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	return request.UserFromContext(r)
}

// Auth creates authentication middleware that validates bearer tokens and
// resolves (or lazily creates) the local user record. Token issuance is the
// identity provider's business; this layer only verifies.
func Auth(userRepo database.UserRepositoryInterface, verifier *auth.Verifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondAuthError(w, http.StatusUnauthorized, "Missing Authorization header", logger)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondAuthError(w, http.StatusUnauthorized, "Invalid Authorization header format", logger)
				return
			}

			ctx := r.Context()
			claims, err := verifier.Verify(ctx, parts[1])
			if err != nil {
				logger.Debug("token_verification_failed", zap.Error(err))
				respondAuthError(w, http.StatusUnauthorized, "Invalid or expired token", logger)
				return
			}

			user, err := userRepo.GetByProviderID(ctx, claims.Sub)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					user = &models.User{
						ID:         uuid.New(),
						Email:      claims.Email,
						ProviderID: &claims.Sub,
					}
					if claims.Name != "" {
						name := claims.Name
						user.Name = &name
					}
					if err := userRepo.Create(ctx, user); err != nil {
						logger.Error("failed_to_create_user", zap.Error(err))
						respondAuthError(w, http.StatusInternalServerError, "Failed to create user", logger)
						return
					}
				} else {
					logger.Error("failed_to_load_user", zap.Error(err))
					respondAuthError(w, http.StatusInternalServerError, "Database error", logger)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func respondAuthError(w http.ResponseWriter, status int, message string, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed_to_encode_auth_error", zap.Error(err))
	}
}
