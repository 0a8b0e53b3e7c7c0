package handlers

import (
	"net/http"

	"github.com/dearfuture/letterbox/internal/database"
	"github.com/dearfuture/letterbox/internal/middleware"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// StatsHandler serves the read side of user stats. Writes happen only in the
// worker's aggregator; this handler never mutates.
type StatsHandler struct {
	statsRepo database.UserStatsRepositoryInterface
	logger    *zap.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsRepo database.UserStatsRepositoryInterface, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{statsRepo: statsRepo, logger: logger}
}

// RegisterRoutes registers stats routes on the given router
func (h *StatsHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/stats", h.Get).Methods(http.MethodGet)
}

// Get handles GET /stats. Users without any recorded activity get a
// zero-valued stats object, not a 404.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "User not authenticated", nil, h.logger)
		return
	}

	stats, err := h.statsRepo.GetByUserID(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed_to_load_stats", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Failed to load stats", nil, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, stats, h.logger)
}
