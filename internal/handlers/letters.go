package handlers

import (
	"net/http"
	"time"

	"github.com/dearfuture/letterbox/internal/middleware"
	"github.com/dearfuture/letterbox/internal/services/letters"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// LetterHandler handles letter HTTP requests
type LetterHandler struct {
	service *letters.Service
	logger  *zap.Logger
}

// NewLetterHandler creates a new letter handler
func NewLetterHandler(service *letters.Service, logger *zap.Logger) *LetterHandler {
	return &LetterHandler{service: service, logger: logger}
}

// RegisterRoutes registers letter routes on the given router
func (h *LetterHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/letters", h.List).Methods(http.MethodGet)
	router.HandleFunc("/letters", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/letters/{id}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/letters/{id}", h.Update).Methods(http.MethodPatch)
	router.HandleFunc("/letters/{id}", h.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/letters/{id}/reschedule", h.Reschedule).Methods(http.MethodPost)
	router.HandleFunc("/letters/{id}/reflections", h.AddReflection).Methods(http.MethodPost)
	router.HandleFunc("/letters/{id}/reflections/{reflectionId}", h.RemoveReflection).Methods(http.MethodDelete)
	router.HandleFunc("/letters/{id}/goals", h.AddGoal).Methods(http.MethodPost)
	router.HandleFunc("/letters/{id}/goals/{goalId}", h.UpdateGoalStatus).Methods(http.MethodPatch)
	router.HandleFunc("/letters/{id}/goals/{goalId}/carry-forward", h.CarryGoalForward).Methods(http.MethodPost)
	router.HandleFunc("/letters/{id}/goals/{goalId}/reflection", h.AddGoalReflection).Methods(http.MethodPost)
}

// pathUUID parses a UUID path variable, responding 400 on failure
func (h *LetterHandler) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid "+name, nil, h.logger)
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /letters
func (h *LetterHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "User not authenticated", nil, h.logger)
		return
	}

	result, err := h.service.List(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, result, h.logger)
}

// Create handles POST /letters
func (h *LetterHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "User not authenticated", nil, h.logger)
		return
	}

	var input letters.CreateLetterInput
	if err := decodeJSON(r, &input); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request body", nil, h.logger)
		return
	}

	letter, err := h.service.Create(r.Context(), user.ID, input)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondJSON(w, http.StatusCreated, letter, h.logger)
}

// Get handles GET /letters/{id}. Reading a due letter marks it delivered.
func (h *LetterHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "User not authenticated", nil, h.logger)
		return
	}

	letterID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}

	letter, err := h.service.View(r.Context(), letterID, user.ID)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, letter, h.logger)
}

// Update handles PATCH /letters/{id}
func (h *LetterHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "User not authenticated", nil, h.logger)
		return
	}

	letterID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}

	var input letters.UpdateLetterInput
	if err := decodeJSON(r, &input); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request body", nil, h.logger)
		return
	}

	letter, err := h.service.Update(r.Context(), letterID, user.ID, input)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, letter, h.logger)
}

// Delete handles DELETE /letters/{id}
func (h *LetterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "User not authenticated", nil, h.logger)
		return
	}

	letterID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), letterID, user.ID); err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Letter deleted"}, h.logger)
}

// Reschedule handles POST /letters/{id}/reschedule
func (h *LetterHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "User not authenticated", nil, h.logger)
		return
	}

	letterID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}

	var input struct {
		DeliveredAt time.Time `json:"delivered_at"`
	}
	if err := decodeJSON(r, &input); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request body", nil, h.logger)
		return
	}

	letter, err := h.service.Reschedule(r.Context(), letterID, user.ID, input.DeliveredAt)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, letter, h.logger)
}

// AddReflection handles POST /letters/{id}/reflections
func (h *LetterHandler) AddReflection(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "User not authenticated", nil, h.logger)
		return
	}

	letterID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}

	var input struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &input); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request body", nil, h.logger)
		return
	}

	letter, err := h.service.AddReflection(r.Context(), letterID, user.ID, input.Text)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondJSON(w, http.StatusCreated, letter, h.logger)
}

// RemoveReflection handles DELETE /letters/{id}/reflections/{reflectionId}
func (h *LetterHandler) RemoveReflection(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "User not authenticated", nil, h.logger)
		return
	}

	letterID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}
	reflectionID, ok := h.pathUUID(w, r, "reflectionId")
	if !ok {
		return
	}

	letter, err := h.service.RemoveReflection(r.Context(), letterID, user.ID, reflectionID)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, letter, h.logger)
}

// AddGoal handles POST /letters/{id}/goals
func (h *LetterHandler) AddGoal(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "User not authenticated", nil, h.logger)
		return
	}

	letterID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}

	var input struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &input); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request body", nil, h.logger)
		return
	}

	letter, err := h.service.AddGoal(r.Context(), letterID, user.ID, input.Text)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondJSON(w, http.StatusCreated, letter, h.logger)
}

// UpdateGoalStatus handles PATCH /letters/{id}/goals/{goalId}
func (h *LetterHandler) UpdateGoalStatus(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "User not authenticated", nil, h.logger)
		return
	}

	letterID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}
	goalID, ok := h.pathUUID(w, r, "goalId")
	if !ok {
		return
	}

	var input letters.UpdateGoalStatusInput
	if err := decodeJSON(r, &input); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request body", nil, h.logger)
		return
	}

	letter, err := h.service.UpdateGoalStatus(r.Context(), letterID, user.ID, goalID, input)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, letter, h.logger)
}

// CarryGoalForward handles POST /letters/{id}/goals/{goalId}/carry-forward
func (h *LetterHandler) CarryGoalForward(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "User not authenticated", nil, h.logger)
		return
	}

	letterID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}
	goalID, ok := h.pathUUID(w, r, "goalId")
	if !ok {
		return
	}

	var input struct {
		NewLetterID uuid.UUID `json:"new_letter_id"`
	}
	if err := decodeJSON(r, &input); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request body", nil, h.logger)
		return
	}

	source, target, err := h.service.CarryGoalForward(r.Context(), letterID, goalID, input.NewLetterID, user.ID)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"source": source,
		"target": target,
	}, h.logger)
}

// AddGoalReflection handles POST /letters/{id}/goals/{goalId}/reflection
func (h *LetterHandler) AddGoalReflection(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "User not authenticated", nil, h.logger)
		return
	}

	letterID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}
	goalID, ok := h.pathUUID(w, r, "goalId")
	if !ok {
		return
	}

	var input struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &input); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request body", nil, h.logger)
		return
	}

	letter, err := h.service.AddGoalReflection(r.Context(), letterID, user.ID, goalID, input.Text)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, letter, h.logger)
}
