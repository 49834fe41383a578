package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/store"
)

// HealthCheckTimeout bounds the catalog ping during readiness checks so
// a stalled database cannot block health probes.
const HealthCheckTimeout = 5 * time.Second

// HealthHandler handles the unauthenticated health probes.
type HealthHandler struct {
	catalog   *store.GORMStore
	startTime time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(catalog *store.GORMStore) *HealthHandler {
	return &HealthHandler{catalog: catalog, startTime: time.Now()}
}

// Liveness handles GET /health. It succeeds whenever the HTTP server is
// responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime)
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"service":    "0x40-cloud",
		"started_at": h.startTime.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
	})
}

// Readiness handles GET /health/ready. It verifies the catalog database
// responds within HealthCheckTimeout.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
	defer cancel()

	start := time.Now()
	if err := h.catalog.Ping(ctx); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"catalog_latency": time.Since(start).String(),
	})
}
