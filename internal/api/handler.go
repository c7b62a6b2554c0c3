// Package api provides HTTP handlers for the research wizard API.
//
//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ashureev/research-wizard/internal/wizard"
)

// maxRequestBodySize is the maximum allowed request body size (64KB). Chat
// messages are short; anything bigger is a client bug.
const maxRequestBodySize = 64 << 10

// Handler provides the wizard API endpoints.
type Handler struct {
	mgr *wizard.Manager
}

// NewHandler creates a new Handler.
func NewHandler(mgr *wizard.Manager) *Handler {
	return &Handler{mgr: mgr}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
