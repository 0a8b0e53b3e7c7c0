// Package handlers exposes the HTTP surface: JSON envelopes, route
// registration and the mapping from service errors to status codes.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dearfuture/letterbox/internal/services/letters"
	"go.uber.org/zap"
)

// Response is the standard success envelope
type Response struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ErrorBody is the standard error envelope
type ErrorBody struct {
	Success   bool              `json:"success"`
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// respondJSON sends a success JSON response
func respondJSON(w http.ResponseWriter, status int, data any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed_to_encode_response", zap.Error(err), zap.Int("status_code", status))
	}
}

// respondJSONError sends an error JSON response
func respondJSONError(w http.ResponseWriter, status int, message string, fields map[string]string, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := ErrorBody{
		Success:   false,
		Error:     message,
		Fields:    fields,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed_to_encode_error_response", zap.Error(err), zap.Int("status_code", status))
	}
}

// respondServiceError maps lifecycle service errors onto HTTP status codes
func respondServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if verr, ok := letters.AsValidationError(err); ok {
		respondJSONError(w, http.StatusBadRequest, "Validation failed", verr.Fields, logger)
		return
	}

	switch {
	case errors.Is(err, letters.ErrLetterNotFound):
		respondJSONError(w, http.StatusNotFound, "Letter not found", nil, logger)
	case errors.Is(err, letters.ErrGoalNotFound):
		respondJSONError(w, http.StatusNotFound, "Goal not found", nil, logger)
	case errors.Is(err, letters.ErrForbidden):
		respondJSONError(w, http.StatusForbidden, "You do not have access to this letter", nil, logger)
	case errors.Is(err, letters.ErrAlreadyDelivered):
		respondJSONError(w, http.StatusConflict, "Letter has already been delivered", nil, logger)
	case errors.Is(err, letters.ErrNotYetDelivered):
		respondJSONError(w, http.StatusConflict, "Letter has not been delivered yet", nil, logger)
	default:
		logger.Error("internal_error", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal server error", nil, logger)
	}
}

// decodeJSON decodes a request body into dst, rejecting unknown fields
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
