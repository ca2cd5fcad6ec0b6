package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/jntm/fundtheme/utils"
	"go.uber.org/zap"
)

// Pinger is an optional dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseChecker reports credential store health and pool usage
type DatabaseChecker interface {
	HealthCheck(ctx context.Context) error
	Stats() sql.DBStats
}

// PoolStats is the connection pool snapshot included in readiness responses
type PoolStats struct {
	Open  int `json:"open"`
	InUse int `json:"inUse"`
	Idle  int `json:"idle"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
	Pool      *PoolStats        `json:"pool,omitempty"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db     DatabaseChecker
	cache  Pinger
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. cache may be nil when no
// shared principal cache is configured.
func NewHealthHandler(db DatabaseChecker, cache Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

// HandleHealth handles GET /healthz
// Liveness check - always returns 200 if the process is serving
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
// Readiness check - validates that the credential store and cache are reachable
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	var pool *PoolStats
	if h.db != nil {
		stats := h.db.Stats()
		pool = &PoolStats{Open: stats.OpenConnections, InUse: stats.InUse, Idle: stats.Idle}
	}

	if err := h.checkDatabase(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		checks["database"] = "unhealthy"
		allHealthy = false
	} else {
		checks["database"] = "healthy"
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			h.logger.Warn("cache health check failed", zap.Error(err))
			checks["cache"] = "unhealthy"
			allHealthy = false
		} else {
			checks["cache"] = "healthy"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Pool:      pool,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// checkDatabase checks database connectivity
func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	return h.db.HealthCheck(ctx)
}
