package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/agentnetwork/agent-gateway/internal/service"
	"github.com/agentnetwork/agent-gateway/internal/util/logger"
)

// Recoverer is the outermost error boundary. A panic anywhere below it is
// recorded as an error analytics event with the failing path, and the
// caller gets a generic 500 with no internals.
func Recoverer(analytics *service.AnalyticsService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("Panic serving %s: %v", r.URL.Path, rec)
					analytics.RecordEvent(r.Context(), "error", map[string]any{
						"path":  r.URL.Path,
						"error": fmt.Sprint(rec),
					})
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]any{"error": "Internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
