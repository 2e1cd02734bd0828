package handler

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dukerupert/chorechart/internal/database"
	"github.com/dukerupert/chorechart/internal/websocket"
)

const readyTimeout = 2 * time.Second

type HealthHandler struct {
	db      *sql.DB
	redis   *redis.Client
	hub     *websocket.Hub
	version string
	started time.Time
	logger  *slog.Logger
}

// NewHealthHandler builds the health endpoints. rdb may be nil when no
// Redis backend is configured.
func NewHealthHandler(db *sql.DB, rdb *redis.Client, hub *websocket.Hub, version string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb, hub: hub, version: version, started: time.Now(), logger: logger}
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks, healthy := h.check(r.Context())
	status := http.StatusOK
	state := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "not ready"
	}
	writeJSON(w, status, map[string]any{"status": state, "checks": checks})
}

func (h *HealthHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	checks, healthy := h.check(r.Context())
	state := "healthy"
	if !healthy {
		state = "degraded"
	}
	clients := 0
	if h.hub != nil {
		clients = h.hub.ClientCount()
	}
	stats := h.db.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            state,
		"version":           h.version,
		"uptime_seconds":    int64(time.Since(h.started).Seconds()),
		"checks":            checks,
		"websocket_clients": clients,
		"database": map[string]int{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
		},
	})
}

// check pings each dependency and reports "ok" or the failure per name.
func (h *HealthHandler) check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	checks := map[string]string{}
	healthy := true
	if err := database.Ping(ctx, h.db); err != nil {
		h.logger.Warn("readiness check failed", "dependency", "database", "error", err)
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			h.logger.Warn("readiness check failed", "dependency", "redis", "error", err)
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}
	return checks, healthy
}
