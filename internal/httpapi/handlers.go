package httpapi

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON body returned for any non-2xx response, mirroring
// the teacher's control-plane API error envelope shape.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// WriteJSON and WriteError are exported so callers constructing Handlers
// outside this package (internal/listener) can reuse the same envelope.
func WriteJSON(w http.ResponseWriter, status int, v interface{})   { writeJSON(w, status, v) }
func WriteError(w http.ResponseWriter, status int, message string) { writeError(w, status, message) }
