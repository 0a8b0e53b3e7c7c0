package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/dearfuture/letterbox/internal/database"
	"github.com/dearfuture/letterbox/internal/queue"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HealthHandler reports component health
type HealthHandler struct {
	db     *database.DB
	redis  *redis.Client
	events queue.EventQueue
	logger *zap.Logger
}

// NewHealthHandler creates a new health handler. redis and events may be nil
// when the deployment runs without them.
func NewHealthHandler(db *database.DB, redisClient *redis.Client, events queue.EventQueue, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, events: events, logger: logger}
}

// RegisterRoutes registers health routes on the given router
func (h *HealthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	components := map[string]string{}
	healthy := true

	if err := h.db.HealthCheck(ctx); err != nil {
		h.logger.Warn("health_check_database_failed", zap.Error(err))
		components["database"] = "unhealthy"
		healthy = false
	} else {
		components["database"] = "healthy"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			h.logger.Warn("health_check_redis_failed", zap.Error(err))
			components["redis"] = "unhealthy"
			healthy = false
		} else {
			components["redis"] = "healthy"
		}
	}

	if h.events != nil {
		if err := h.events.HealthCheck(ctx); err != nil {
			h.logger.Warn("health_check_queue_failed", zap.Error(err))
			components["queue"] = "unhealthy"
			healthy = false
		} else {
			components["queue"] = "healthy"
		}
	}

	status := http.StatusOK
	overall := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	respondJSON(w, status, map[string]any{
		"status":     overall,
		"components": components,
	}, h.logger)
}
