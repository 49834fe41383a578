// Package handlers provides HTTP handlers for the cloud drive API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Dreamer0iQ/0x40-cloud/internal/logger"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
)

// Problem represents an RFC 7807 "problem details" response.
// https://tools.ietf.org/html/rfc7807
type Problem struct {
	// Type is a URI reference that identifies the problem type.
	// If not set, defaults to "about:blank".
	Type string `json:"type,omitempty"`

	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`

	// Status is the HTTP status code for this occurrence of the problem.
	Status int `json:"status"`

	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`
}

// ContentTypeProblemJSON is the Content-Type for RFC 7807 problem
// responses.
const ContentTypeProblemJSON = "application/problem+json"

// WriteProblem writes an RFC 7807 problem response.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	problem := &Problem{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	}

	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// BadRequest writes a 400 Bad Request problem response.
func BadRequest(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusBadRequest, "Bad Request", detail)
}

// Unauthorized writes a 401 Unauthorized problem response.
func Unauthorized(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusUnauthorized, "Unauthorized", detail)
}

// Forbidden writes a 403 Forbidden problem response.
func Forbidden(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusForbidden, "Forbidden", detail)
}

// NotFound writes a 404 Not Found problem response.
func NotFound(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusNotFound, "Not Found", detail)
}

// Conflict writes a 409 Conflict problem response.
func Conflict(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusConflict, "Conflict", detail)
}

// Gone writes a 410 Gone problem response.
func Gone(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusGone, "Gone", detail)
}

// UnprocessableEntity writes a 422 Unprocessable Entity problem response.
func UnprocessableEntity(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", detail)
}

// InternalServerError writes a 500 Internal Server Error problem
// response.
func InternalServerError(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", detail)
}

// WriteDomainError maps a domain error onto the corresponding problem
// response. Unknown errors become opaque 500s; the detail is logged, not
// leaked.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrEntryNotFound),
		errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrShareNotFound):
		NotFound(w, err.Error())

	case errors.Is(err, models.ErrDuplicateEntry),
		errors.Is(err, models.ErrRestoreConflict),
		errors.Is(err, models.ErrDuplicateUser),
		errors.Is(err, models.ErrShareExists),
		errors.Is(err, models.ErrConcurrentModification):
		Conflict(w, err.Error())

	case errors.Is(err, models.ErrNotTrashed),
		errors.Is(err, models.ErrUnsupportedOperation):
		UnprocessableEntity(w, err.Error())

	case errors.Is(err, models.ErrIntegrity):
		BadRequest(w, err.Error())

	case errors.Is(err, models.ErrShareExpired),
		errors.Is(err, models.ErrShareExhausted):
		Gone(w, err.Error())

	case errors.Is(err, models.ErrQuotaExceeded),
		errors.Is(err, models.ErrEntryTooLarge):
		WriteProblem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", err.Error())

	case errors.Is(err, models.ErrInvalidCredentials),
		errors.Is(err, models.ErrUnauthenticated):
		Unauthorized(w, err.Error())

	case errors.Is(err, models.ErrTimeout):
		WriteProblem(w, http.StatusGatewayTimeout, "Gateway Timeout", err.Error())

	default:
		logger.ErrorCtx(r.Context(), "request failed", logger.KeyError, err)
		InternalServerError(w, "an unexpected error occurred")
	}
}
