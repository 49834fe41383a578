package handlers

import (
	"net/http"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/quota"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/store"
)

// StatsHandler serves storage usage statistics.
type StatsHandler struct {
	quota   *quota.Service
	catalog *store.GORMStore
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(q *quota.Service, catalog *store.GORMStore) *StatsHandler {
	return &StatsHandler{quota: q, catalog: catalog}
}

// Storage handles GET /files/storage.
func (h *StatsHandler) Storage(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}

	user, err := h.catalog.GetUserByID(r.Context(), c.UserID)
	if err != nil {
		Unauthorized(w, "unknown user")
		return
	}

	stats, err := h.quota.Stats(r.Context(), user)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}
