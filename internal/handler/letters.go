package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kashw/keepsake/internal/store"
)

// LettersHandler serves the letters collection and the stats summary.
type LettersHandler struct {
	docs *store.DocumentStore
}

// NewLettersHandler creates a LettersHandler.
func NewLettersHandler(docs *store.DocumentStore) *LettersHandler {
	return &LettersHandler{docs: docs}
}

// List returns all letters, newest first.
func (h *LettersHandler) List(w http.ResponseWriter, r *http.Request) {
	letters, err := h.docs.Letters(r.Context())
	if err != nil {
		slog.Error("listing letters", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load letters")
		return
	}
	writeJSON(w, http.StatusOK, letters)
}

// Create stores a new letter and returns it.
func (h *LettersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	letter, err := h.docs.AddLetter(r.Context(), req.Title, req.Content)
	if err != nil {
		slog.Error("saving letter", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save letter")
		return
	}
	writeJSON(w, http.StatusOK, letter)
}

// Stats returns photo, video and letter counts.
func (h *LettersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.docs.Stats(r.Context())
	if err != nil {
		slog.Error("computing stats", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
