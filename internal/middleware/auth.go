package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/agentnetwork/agent-gateway/internal/service"
	"github.com/agentnetwork/agent-gateway/internal/util/logger"
)

type contextKey string

// ContextToken holds the validated bearer token value for downstream
// handlers.
const ContextToken contextKey = "bearer_token"

// RequireBearer gates capability endpoints on a valid bearer token. Every
// rejection is recorded as an unauthorized_request analytics event before
// the 401 goes out.
func RequireBearer(tokens *service.TokenService, analytics *service.AnalyticsService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			value, err := tokens.Validate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				// Only the validation sentinels mean the caller is at
				// fault; anything else is a store failure and must not
				// masquerade as a bad token.
				if err != service.ErrMissingBearer && err != service.ErrInvalidToken {
					logger.Error("Token validation failed on %s: %v", r.URL.Path, err)
					analytics.RecordEvent(r.Context(), "error", map[string]any{
						"path":  r.URL.Path,
						"error": err.Error(),
					})
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]any{"error": "Internal server error"})
					return
				}
				reason := err.Error()
				analytics.RecordEvent(r.Context(), "unauthorized_request", map[string]any{
					"endpoint": r.URL.Path,
					"reason":   reason,
				})
				writeUnauthorized(w, reason)
				return
			}
			ctx := context.WithValue(r.Context(), ContextToken, value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdminKey gates admin endpoints on an exact shared-secret match of
// the X-Admin-Key header.
func RequireAdminKey(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" || r.Header.Get("X-Admin-Key") != adminKey {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]any{"error": "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":  "Unauthorized",
		"reason": reason,
	})
}
