package server

import (
	"context"
	"net/http"
	"strings"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyToken stores the bearer session token
	ContextKeyToken ContextKey = "session_token"
)

// BearerTokenMiddleware puts the request's bearer token into the context. A
// missing header is passed through so the service reports Unauthorized; a
// header that is not a bearer credential is refused here.
func (s *Server) BearerTokenMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next(w, r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			writeJSONError(w, "unauthorized", "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyToken, strings.TrimSpace(parts[1]))
		next(w, r.WithContext(ctx))
	}
}

func tokenFromRequest(r *http.Request) string {
	token, _ := r.Context().Value(ContextKeyToken).(string)
	return token
}
