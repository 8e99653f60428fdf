package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

// usernameKey is the context key for the authenticated username.
const usernameKey contextKey = "username"

// RequireAuth checks for a valid bearer token in the Authorization header
// and stores the username in the request context. A missing credential is
// 401 Unauthenticated; a supplied-but-bad one is 403 Invalid token.
func RequireAuth(secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			denied(w, http.StatusUnauthorized, "Unauthenticated")
			return
		}

		fields := strings.Fields(authHeader)
		if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
			denied(w, http.StatusForbidden, "Invalid token")
			return
		}

		username, err := VerifyToken(fields[1], secret)
		if err != nil {
			denied(w, http.StatusForbidden, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), usernameKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Username returns the authenticated username from the context.
func Username(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameKey).(string)
	return username, ok
}

func denied(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
