package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Dreamer0iQ/0x40-cloud/internal/logger"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/store"
)

// UsersHandler serves the admin user-management routes.
type UsersHandler struct {
	catalog *store.GORMStore
}

// NewUsersHandler creates a users handler.
func NewUsersHandler(catalog *store.GORMStore) *UsersHandler {
	return &UsersHandler{catalog: catalog}
}

// List handles GET /admin/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.catalog.ListUsers(r.Context())
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

type createUserRequest struct {
	Username   string `json:"username" validate:"required,min=1,max=255"`
	Password   string `json:"password" validate:"required,min=8"`
	Role       string `json:"role,omitempty"`
	QuotaBytes int64  `json:"quota_bytes,omitempty"`
}

// Create handles POST /admin/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	hash, err := models.HashPassword(req.Password)
	if err != nil {
		InternalServerError(w, "failed to hash password")
		return
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash,
		Role:         req.Role,
		QuotaBytes:   req.QuotaBytes,
	}
	if err := h.catalog.CreateUser(r.Context(), user); err != nil {
		WriteDomainError(w, r, err)
		return
	}

	logger.InfoCtx(r.Context(), "user created", logger.KeyUsername, user.Username)
	WriteJSON(w, http.StatusCreated, user)
}

// Delete handles DELETE /admin/users/{username}. The bootstrap admin
// account cannot be deleted.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == models.AdminUsername {
		UnprocessableEntity(w, "the admin account cannot be deleted")
		return
	}

	if err := h.catalog.DeleteUser(r.Context(), username); err != nil {
		WriteDomainError(w, r, err)
		return
	}

	logger.InfoCtx(r.Context(), "user deleted", logger.KeyUsername, username)
	w.WriteHeader(http.StatusNoContent)
}

type setQuotaRequest struct {
	QuotaBytes int64 `json:"quota_bytes" validate:"gte=0"`
}

// SetQuota handles PATCH /admin/users/{username}/quota. A zero quota
// reverts the user to the server default.
func (h *UsersHandler) SetQuota(w http.ResponseWriter, r *http.Request) {
	var req setQuotaRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	username := chi.URLParam(r, "username")
	if err := h.catalog.SetUserQuota(r.Context(), username, req.QuotaBytes); err != nil {
		WriteDomainError(w, r, err)
		return
	}

	user, err := h.catalog.GetUser(r.Context(), username)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}
