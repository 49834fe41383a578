package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Dreamer0iQ/0x40-cloud/internal/logger"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/share"
)

// SharesHandler serves the authenticated share-link routes.
type SharesHandler struct {
	shares  *share.Service
	baseURL string
}

// NewSharesHandler creates a shares handler. baseURL is the public
// origin embedded in generated share URLs.
func NewSharesHandler(shares *share.Service, baseURL string) *SharesHandler {
	return &SharesHandler{shares: shares, baseURL: baseURL}
}

type createShareRequest struct {
	FileID    string     `json:"file_id" validate:"required"`
	Limit     *int64     `json:"limit,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type shareResponse struct {
	Token     string     `json:"token"`
	URL       string     `json:"url"`
	FileID    string     `json:"file_id"`
	FileName  string     `json:"file_name,omitempty"`
	Downloads int64      `json:"downloads"`
	Limit     *int64     `json:"limit,omitempty"`
	Remaining *int64     `json:"remaining,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (h *SharesHandler) shareURL(token string) string {
	return h.baseURL + "/public/share/" + token
}

// Create handles POST /shares.
func (h *SharesHandler) Create(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}

	var req createShareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	link, err := h.shares.Create(r.Context(), c.UserID, req.FileID, req.Limit, req.ExpiresAt)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	logger.InfoCtx(r.Context(), "share link created", logger.KeyEntryID, link.FileID)
	WriteJSON(w, http.StatusCreated, shareResponse{
		Token:     link.Token,
		URL:       h.shareURL(link.Token),
		FileID:    link.FileID,
		Downloads: link.Downloads,
		Limit:     link.Limit,
		Remaining: link.Remaining(),
		ExpiresAt: link.ExpiresAt,
		CreatedAt: link.CreatedAt,
	})
}

// List handles GET /shares.
func (h *SharesHandler) List(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}

	links, err := h.shares.List(r.Context(), c.UserID)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	out := make([]shareResponse, 0, len(links))
	for _, link := range links {
		out = append(out, shareResponse{
			Token:     link.Token,
			URL:       h.shareURL(link.Token),
			FileID:    link.FileID,
			FileName:  link.File.OriginalName,
			Downloads: link.Downloads,
			Limit:     link.Limit,
			Remaining: link.Remaining(),
			ExpiresAt: link.ExpiresAt,
			CreatedAt: link.CreatedAt,
		})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"shares": out})
}

// Revoke handles DELETE /shares/{token}.
func (h *SharesHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}

	if err := h.shares.Revoke(r.Context(), c.UserID, chi.URLParam(r, "token")); err != nil {
		WriteDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
