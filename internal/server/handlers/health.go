package handlers

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler отвечает на health check запросы
type HealthHandler struct {
	logger  *slog.Logger
	version string
	started time.Time
}

// NewHealthHandler создает health handler
func NewHealthHandler(logger *slog.Logger, version string) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		version: version,
		started: time.Now(),
	}
}

// Health обрабатывает GET /api/v1/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":         "ok",
		"version":        h.version,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	}
	sendJSON(w, h.logger, resp, http.StatusOK)
}
