package handler

import (
	"net/http"

	"github.com/capitalize-ai/ds-assistant/internal/model"
)

// SnapshotHolder exposes the catalog snapshot without fetching.
type SnapshotHolder interface {
	Current() *model.Snapshot
}

// Connection reports the state of an optional backend connection.
type Connection interface {
	IsConnected() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	catalog SnapshotHolder
	nats    Connection
}

// NewHealthHandler creates a new health handler. nats may be nil when the
// audit mirror is not configured.
func NewHealthHandler(catalog SnapshotHolder, nats Connection) *HealthHandler {
	return &HealthHandler{
		catalog: catalog,
		nats:    nats,
	}
}

// Root handles GET / for platforms that probe the service root.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Bot is running"))
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.catalog.Current() == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "catalog not loaded",
		})
		return
	}

	if h.nats != nil && !h.nats.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
