package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/api/auth"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/api/middleware"
)

// validate is the shared request validator.
var validate = validator.New()

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON decodes and validates a JSON request body. A false return
// means a problem response has already been written.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			BadRequest(w, "request body is required")
		} else {
			BadRequest(w, "invalid JSON: "+err.Error())
		}
		return false
	}

	if err := validate.Struct(dst); err != nil {
		UnprocessableEntity(w, err.Error())
		return false
	}
	return true
}

// claims returns the authenticated claims for a request. A nil return
// means a problem response has already been written.
func claims(w http.ResponseWriter, r *http.Request) *auth.Claims {
	c := middleware.GetClaimsFromContext(r.Context())
	if c == nil {
		Unauthorized(w, "authentication required")
	}
	return c
}

// queryLimit parses an optional ?limit= parameter with a default and cap.
func queryLimit(r *http.Request, def, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
