package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/kashw/keepsake/internal/adapter"
	"github.com/kashw/keepsake/internal/model"
	"github.com/kashw/keepsake/internal/store"
)

// maxUploadMemory caps how much of a multipart body is buffered in RAM
// before spilling to disk.
const maxUploadMemory = 32 << 20 // 32MB

// MemoriesHandler serves the photo/video tree: listings, folder creation,
// uploads and the binary proxy.
type MemoriesHandler struct {
	files *store.FileStore
}

// NewMemoriesHandler creates a MemoriesHandler.
func NewMemoriesHandler(files *store.FileStore) *MemoriesHandler {
	return &MemoriesHandler{files: files}
}

// List returns the visible entries of a virtual folder. An absent folder
// is an empty array.
func (h *MemoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	category, ok := h.category(w, r)
	if !ok {
		return
	}
	items, err := h.files.List(r.Context(), category, r.URL.Query().Get("folder"))
	if err != nil {
		slog.Error("listing folder", "category", category, "error", err)
		writeError(w, http.StatusInternalServerError, "Listing failed")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateFolder writes the placeholder that makes an empty folder visible.
func (h *MemoriesHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	category, ok := h.category(w, r)
	if !ok {
		return
	}
	var req struct {
		Name   string `json:"name"`
		Parent string `json:"parent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Folder name is required")
		return
	}

	if err := h.files.CreateFolder(r.Context(), category, req.Parent, req.Name); err != nil {
		slog.Error("creating folder", "category", category, "name", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create folder")
		return
	}
	writeJSON(w, http.StatusOK, success)
}

// Upload stores each multipart file under the folder with a
// timestamp-prefixed name. Files are written sequentially; a mid-batch
// failure reports how far it got, earlier files stay committed.
func (h *MemoriesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	category, ok := h.category(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		writeError(w, http.StatusBadRequest, "No files supplied")
		return
	}

	uploads := make([]model.Upload, 0, len(parts))
	for _, part := range parts {
		f, err := part.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "Unreadable file: "+part.Filename)
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "Unreadable file: "+part.Filename)
			return
		}
		uploads = append(uploads, model.Upload{Name: part.Filename, Content: content})
	}

	written, err := h.files.Upload(r.Context(), category, r.URL.Query().Get("folder"), uploads)
	if err != nil {
		slog.Error("upload failed", "category", category, "written", written, "total", len(uploads), "error", err)
		writeError(w, http.StatusInternalServerError,
			"Upload failed; some files may have been stored")
		return
	}
	writeJSON(w, http.StatusOK, success)
}

// Proxy streams a stored binary back by path. This is the only route
// through which stored bytes reach a client; listings never embed backend
// URLs.
func (h *MemoriesHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "Missing path")
		return
	}

	content, err := h.files.Fetch(r.Context(), path)
	if errors.Is(err, adapter.ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("proxy fetch failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := w.Write(content); err != nil {
		slog.Error("proxy write failed", "error", err)
	}
}

func (h *MemoriesHandler) category(w http.ResponseWriter, r *http.Request) (store.Category, bool) {
	category, err := store.ParseCategory(r.PathValue("category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown category")
		return "", false
	}
	return category, true
}
