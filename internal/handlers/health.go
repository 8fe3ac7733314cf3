package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/coastwatch-systems/coastwatch/internal/httputil"
)

// Pinger reports database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionCounter reports the number of live realtime connections.
type ConnectionCounter interface {
	ConnectedCount() int
}

// HealthHandler serves GET /api/health.
type HealthHandler struct {
	db      Pinger
	hub     ConnectionCounter
	version string
}

func NewHealthHandler(db Pinger, hub ConnectionCounter, version string) *HealthHandler {
	return &HealthHandler{db: db, hub: hub, version: version}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": h.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			resp["status"] = "degraded"
			resp["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp["database"] = "ok"
		}
	}

	if h.hub != nil {
		resp["realtime_connections"] = h.hub.ConnectedCount()
	}

	httputil.WriteJSON(w, status, resp)
}
