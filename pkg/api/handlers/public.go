package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Dreamer0iQ/0x40-cloud/internal/logger"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/lifecycle"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/share"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
)

// PublicHandler serves unauthenticated share-link access.
type PublicHandler struct {
	shares *share.Service
	files  *lifecycle.Service
}

// NewPublicHandler creates a public share handler.
func NewPublicHandler(shares *share.Service, files *lifecycle.Service) *PublicHandler {
	return &PublicHandler{shares: shares, files: files}
}

// sharePreview is the metadata shown on a share landing page. Owner
// identity and virtual paths are never exposed.
type sharePreview struct {
	FileName  string     `json:"file_name"`
	Size      int64      `json:"size"`
	MimeType  string     `json:"mime_type"`
	Remaining *int64     `json:"remaining,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Preview handles GET /public/share/{token}. Looking at a share does
// not burn a download.
func (h *PublicHandler) Preview(w http.ResponseWriter, r *http.Request) {
	link, err := h.shares.Resolve(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, sharePreview{
		FileName:  link.File.OriginalName,
		Size:      link.File.Size,
		MimeType:  link.File.MimeType,
		Remaining: link.Remaining(),
		ExpiresAt: link.ExpiresAt,
		CreatedAt: link.CreatedAt,
	})
}

// Download handles GET /public/share/{token}/download. The shared file
// is verified to be downloadable before the counter advances, so a
// trashed or deleted target never burns a download. The counter itself
// is advanced atomically before any bytes are streamed, keeping the
// limit exact under concurrent requests.
func (h *PublicHandler) Download(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	resolved, err := h.shares.Resolve(r.Context(), token)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	if resolved.File.State != models.StateActive || resolved.File.ContentHash == nil {
		WriteDomainError(w, r, models.ErrEntryNotFound)
		return
	}

	link, err := h.shares.Consume(r.Context(), token)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	rc, err := h.files.OpenShared(r.Context(), link)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	defer rc.Close()

	logger.InfoCtx(r.Context(), "shared download",
		logger.KeyEntryID, link.FileID, "downloads", link.Downloads)
	writeFileStream(w, &link.File, rc, true)
}
