package server

import (
	"encoding/json"
	"net/http"

	"github.com/aitarf0921/AI-Secretary/pkg/provider"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	LastError *provider.Failure `json:"lastError,omitempty"`
	Hints     []string          `json:"hints,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON error body.
func writeJSONError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}
