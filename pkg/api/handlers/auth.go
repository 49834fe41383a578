package handlers

import (
	"net/http"
	"time"

	"github.com/Dreamer0iQ/0x40-cloud/internal/logger"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/api/auth"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/store"
)

// AuthHandler serves login, token refresh and identity routes.
type AuthHandler struct {
	catalog *store.GORMStore
	jwt     *auth.JWTService
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(catalog *store.GORMStore, jwt *auth.JWTService) *AuthHandler {
	return &AuthHandler{catalog: catalog, jwt: jwt}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	*auth.TokenPair
	User *models.User `json:"user"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.catalog.ValidateCredentials(r.Context(), req.Username, req.Password)
	if err != nil {
		logger.WarnCtx(r.Context(), "login rejected", logger.KeyUsername, req.Username)
		Unauthorized(w, models.ErrInvalidCredentials.Error())
		return
	}

	pair, err := h.jwt.GenerateTokenPair(user)
	if err != nil {
		InternalServerError(w, "failed to issue tokens")
		return
	}

	if err := h.catalog.UpdateLastLogin(r.Context(), user.ID, time.Now()); err != nil {
		logger.WarnCtx(r.Context(), "failed to record last login",
			logger.KeyUsername, user.Username, logger.KeyError, err)
	}

	logger.InfoCtx(r.Context(), "user logged in", logger.KeyUsername, user.Username)
	WriteJSON(w, http.StatusOK, loginResponse{TokenPair: pair, User: user})
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=1,max=255"`
	Password string `json:"password" validate:"required,min=8"`
}

// Register handles POST /auth/register. New accounts always get the
// regular user role and the server default quota.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	hash, err := models.HashPassword(req.Password)
	if err != nil {
		InternalServerError(w, "failed to hash password")
		return
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: hash,
		Role:         string(models.RoleUser),
	}
	if err := h.catalog.CreateUser(r.Context(), user); err != nil {
		WriteDomainError(w, r, err)
		return
	}

	pair, err := h.jwt.GenerateTokenPair(user)
	if err != nil {
		InternalServerError(w, "failed to issue tokens")
		return
	}

	logger.InfoCtx(r.Context(), "user registered", logger.KeyUsername, user.Username)
	WriteJSON(w, http.StatusCreated, loginResponse{TokenPair: pair, User: user})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh handles POST /auth/refresh. The refresh token is validated
// and a fresh pair is issued against the current user record, so role
// and quota changes take effect on rotation.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	claims, err := h.jwt.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		Unauthorized(w, "invalid refresh token")
		return
	}

	user, err := h.catalog.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		Unauthorized(w, "unknown user")
		return
	}

	pair, err := h.jwt.GenerateTokenPair(user)
	if err != nil {
		InternalServerError(w, "failed to issue tokens")
		return
	}
	WriteJSON(w, http.StatusOK, pair)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	c := claims(w, r)
	if c == nil {
		return
	}

	user, err := h.catalog.GetUserByID(r.Context(), c.UserID)
	if err != nil {
		Unauthorized(w, "unknown user")
		return
	}
	WriteJSON(w, http.StatusOK, user)
}
