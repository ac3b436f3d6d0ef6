// Package api implements the palmpay JSON HTTP handlers.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Hint    string `json:"hint,omitempty"`
}

// writeJSON writes data as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeErrorHint(w http.ResponseWriter, status int, message, hint string) {
	writeJSON(w, status, errorResponse{Error: message, Hint: hint})
}

// queryLimit parses ?limit=, falling back to def when absent or invalid.
func queryLimit(r *http.Request, def int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
