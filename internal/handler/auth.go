package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kashw/keepsake/internal/auth"
	"github.com/kashw/keepsake/internal/store"
)

// AuthHandler serves registration and login.
type AuthHandler struct {
	docs      *store.DocumentStore
	jwtSecret string
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(docs *store.DocumentStore, jwtSecret string) *AuthHandler {
	return &AuthHandler{docs: docs, jwtSecret: jwtSecret}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates the deployment's account. 400 when one already exists.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	if err := h.docs.Register(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, store.ErrAccountExists) {
			writeError(w, http.StatusBadRequest, "Account exists")
			return
		}
		slog.Error("register failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}
	writeJSON(w, http.StatusOK, success)
}

// Login checks credentials and issues a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.docs.Authenticate(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		slog.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	token, err := auth.IssueToken(req.Username, h.jwtSecret)
	if err != nil {
		slog.Error("signing token", "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
