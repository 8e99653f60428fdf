// Package handler exposes the vault's HTTP JSON API. Handlers decode the
// request, call the store layer, and map its sentinel errors to statuses;
// backend failures become generic 500s so nothing about the content
// repository leaks to clients.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// success is the body of endpoints that only acknowledge.
var success = map[string]bool{"success": true}
