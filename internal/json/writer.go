// Package json writes API responses. Every error response uses the uniform
// {"error": "..."} body so clients have a single shape to handle.
package json

import (
	"encoding/json"
	"net/http"

	"github.com/scalekit-inc/org-switcher-demo/internal/log"
)

// ErrorResponse is the uniform error body for all non-2xx responses.
type ErrorResponse struct {
	Error         string `json:"error"`
	Authenticated *bool  `json:"authenticated,omitempty"`
}

// WriteResponse writes a JSON response with the given status code
func WriteResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.LogError("Failed to encode JSON response: %v", err)
		return err
	}
	return nil
}

// Write writes a JSON response with 200 OK status
func Write(w http.ResponseWriter, data any) error {
	return WriteResponse(w, http.StatusOK, data)
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	response := ErrorResponse{Error: message}

	if err := WriteResponse(w, statusCode, response); err != nil {
		// Fallback to plain text error if JSON encoding fails
		http.Error(w, message, statusCode)
	}
}

// WriteUnauthenticated writes a 401 response. The body carries
// authenticated:false so the client can redirect to login without
// inspecting the status code.
func WriteUnauthenticated(w http.ResponseWriter, message string) {
	authenticated := false
	response := ErrorResponse{Error: message, Authenticated: &authenticated}
	if err := WriteResponse(w, http.StatusUnauthorized, response); err != nil {
		http.Error(w, message, http.StatusUnauthorized)
	}
}

// WriteBadRequest writes a 400 response for state mismatches and
// invalid grants.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// WriteNotFound writes a 404 response for unknown connectors.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

// WriteUpstreamError writes a 502 response for identity platform failures,
// passing the upstream message through for diagnostics.
func WriteUpstreamError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, message)
}

// WriteInternalServerError writes a 500 response.
func WriteInternalServerError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}
