package handlers

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Dreamer0iQ/0x40-cloud/internal/logger"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/lifecycle"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
	vfspath "github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/path"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/store"
)

// multipartMemory caps the in-memory portion of a multipart upload;
// larger parts spool to disk.
const multipartMemory = 32 << 20

// FilesHandler serves the authenticated file routes.
type FilesHandler struct {
	files   *lifecycle.Service
	catalog *store.GORMStore
}

// NewFilesHandler creates a files handler.
func NewFilesHandler(files *lifecycle.Service, catalog *store.GORMStore) *FilesHandler {
	return &FilesHandler{files: files, catalog: catalog}
}

// currentUser resolves the authenticated user record. A nil return means
// a problem response has already been written.
func (h *FilesHandler) currentUser(w http.ResponseWriter, r *http.Request) *models.User {
	c := claims(w, r)
	if c == nil {
		return nil
	}
	user, err := h.catalog.GetUserByID(r.Context(), c.UserID)
	if err != nil {
		Unauthorized(w, "unknown user")
		return nil
	}
	return user
}

// List handles GET /files?path=.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}

	listing, err := h.files.List(r.Context(), c.UserID, r.URL.Query().Get("path"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, listing)
}

// uploadResponse is the per-file outcome of an upload request.
type uploadResponse struct {
	Name  string            `json:"name"`
	Entry *models.FileEntry `json:"entry,omitempty"`
	Error string            `json:"error,omitempty"`
}

// Upload handles POST /files/upload (multipart). Multiple files may be
// sent in one request; failures are per-file. File names containing
// slashes are folder uploads: the relative directory is created beneath
// the target path.
func (h *FilesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		BadRequest(w, "invalid multipart request: "+err.Error())
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	basePath := vfspath.Normalize(r.FormValue("path"))
	expectedHash := r.FormValue("hash")

	var fileHeaders = r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		fileHeaders = r.MultipartForm.File["file"]
	}
	if len(fileHeaders) == 0 {
		BadRequest(w, "no files in request")
		return
	}
	if expectedHash != "" && len(fileHeaders) > 1 {
		BadRequest(w, "hash verification only applies to single-file uploads")
		return
	}

	results := make([]uploadResponse, 0, len(fileHeaders))
	failures := 0
	var firstErr error
	for _, fh := range fileHeaders {
		dir, name := splitUploadName(basePath, fh.Filename)

		f, err := fh.Open()
		if err == nil {
			var entry *models.FileEntry
			entry, err = h.files.Upload(r.Context(), user, lifecycle.UploadRequest{
				Name:         name,
				Path:         dir,
				Content:      f,
				ExpectedHash: expectedHash,
			})
			f.Close()
			if err == nil {
				results = append(results, uploadResponse{Name: fh.Filename, Entry: entry})
				continue
			}
		}

		results = append(results, uploadResponse{Name: fh.Filename, Error: err.Error()})
		failures++
		if firstErr == nil {
			firstErr = err
		}
	}

	// A lone failed upload gets the full problem mapping so single-file
	// clients can distinguish conflicts from quota errors.
	if failures == 1 && len(results) == 1 {
		WriteDomainError(w, r, firstErr)
		return
	}

	status := http.StatusCreated
	if failures > 0 {
		status = http.StatusMultiStatus
	}
	WriteJSON(w, status, map[string]any{"results": results})
}

// splitUploadName derives the target directory and file name from a
// client file name, which may carry a relative folder path.
func splitUploadName(basePath, filename string) (dir, name string) {
	filename = strings.ReplaceAll(filename, "\\", "/")
	if !strings.Contains(filename, "/") {
		return basePath, filename
	}
	rel := path.Dir(filename)
	name = path.Base(filename)
	return vfspath.Join(basePath, rel), name
}

// Download handles GET /files/{id}/download[?preview=true].
func (h *FilesHandler) Download(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}

	preview := r.URL.Query().Get("preview") == "true"
	rc, entry, err := h.files.Download(r.Context(), c.UserID, chi.URLParam(r, "id"), preview)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	defer rc.Close()

	writeFileStream(w, entry, rc, !preview)
}

// writeFileStream sets download headers and copies the blob to the
// client.
func writeFileStream(w http.ResponseWriter, entry *models.FileEntry, rc io.Reader, attachment bool) {
	w.Header().Set("Content-Type", entry.MimeType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", entry.Size))

	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{
		"filename": entry.OriginalName,
	}))

	if _, err := io.Copy(w, rc); err != nil {
		// Headers are gone; only log.
		logger.Warn("download stream interrupted", logger.KeyEntryID, entry.ID, logger.KeyError, err)
	}
}

// DownloadFolder handles GET /files/download-folder?path=.
func (h *FilesHandler) DownloadFolder(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}

	dirPath := vfspath.Normalize(r.URL.Query().Get("path"))
	if dirPath == vfspath.Root {
		BadRequest(w, "path is required")
		return
	}

	// Existence is checked before headers are committed; a failure
	// mid-stream can only truncate the zip.
	exists, err := h.catalog.FolderExists(r.Context(), c.UserID, dirPath)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	if !exists {
		NotFound(w, models.ErrEntryNotFound.Error())
		return
	}

	zipName := vfspath.Base(dirPath) + ".zip"
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": zipName,
	}))

	if err := h.files.ArchiveFolder(r.Context(), c.UserID, dirPath, w); err != nil {
		logger.WarnCtx(r.Context(), "folder archive aborted",
			logger.KeyPath, dirPath, logger.KeyError, err)
	}
}

// Rename handles PATCH /files/{id}/rename.
func (h *FilesHandler) Rename(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}

	var req struct {
		NewName string `json:"new_name" validate:"required"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.files.Rename(r.Context(), c.UserID, chi.URLParam(r, "id"), req.NewName)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, entry)
}

// Move handles PATCH /files/{id}/move.
func (h *FilesHandler) Move(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}

	var req struct {
		NewPath string `json:"new_path" validate:"required"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.files.Move(r.Context(), c.UserID, chi.URLParam(r, "id"), req.NewPath)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, entry)
}

// Star handles POST /files/{id}/star.
func (h *FilesHandler) Star(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}

	starred, err := h.files.ToggleStar(r.Context(), c.UserID, chi.URLParam(r, "id"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"is_starred": starred})
}

// StarFolder handles POST /files/folder/star.
func (h *FilesHandler) StarFolder(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}

	var req struct {
		Path string `json:"path" validate:"required"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	starred, err := h.files.ToggleStarFolder(r.Context(), c.UserID, req.Path)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"is_starred": starred})
}

// Trash handles DELETE /files/{id} (soft delete).
func (h *FilesHandler) Trash(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}

	entry, err := h.files.Trash(r.Context(), c.UserID, chi.URLParam(r, "id"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, entry)
}

// PermanentDelete handles DELETE /files/{id}/permanent.
func (h *FilesHandler) PermanentDelete(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}

	if err := h.files.PermanentDelete(r.Context(), c.UserID, chi.URLParam(r, "id")); err != nil {
		WriteDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Restore handles POST /files/{id}/restore.
func (h *FilesHandler) Restore(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}

	entry, err := h.files.Restore(r.Context(), c.UserID, chi.URLParam(r, "id"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, entry)
}

// CreateFolder handles POST /files/folder.
func (h *FilesHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}

	var req struct {
		Path string `json:"path"`
		Name string `json:"name" validate:"required"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.files.CreateFolder(r.Context(), c.UserID, req.Path, req.Name)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, entry)
}

// DeleteFolder handles DELETE /files/folder?path=.
func (h *FilesHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}

	dirPath, err := url.QueryUnescape(r.URL.Query().Get("path"))
	if err != nil || dirPath == "" {
		BadRequest(w, "path is required")
		return
	}

	trashed, err := h.files.DeleteFolder(r.Context(), c.UserID, dirPath)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int64{"trashed": trashed})
}

// Recent handles GET /files/recent.
func (h *FilesHandler) Recent(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.files.Recent)
}

// Suggested handles GET /files/suggested.
func (h *FilesHandler) Suggested(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.files.Suggested)
}

// Images handles GET /files/images.
func (h *FilesHandler) Images(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.files.Images)
}

// Starred handles GET /files/starred.
func (h *FilesHandler) Starred(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}
	entries, err := h.files.Starred(r.Context(), c.UserID)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// Trashed handles GET /files/trash.
func (h *FilesHandler) Trashed(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}
	entries, err := h.files.Trashed(r.Context(), c.UserID)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// Search handles GET /files/search?q=&limit=.
func (h *FilesHandler) Search(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		BadRequest(w, "query parameter q is required")
		return
	}

	entries, err := h.files.Search(r.Context(), c.UserID, query, queryLimit(r, 20, 100))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

type limitedList func(ctx context.Context, ownerID string, limit int) ([]*models.FileEntry, error)

func (h *FilesHandler) list(w http.ResponseWriter, r *http.Request, fn limitedList) {
	c := claims(w, r)
	if c == nil {
		return
	}

	entries, err := fn(r.Context(), c.UserID, queryLimit(r, 20, 100))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
