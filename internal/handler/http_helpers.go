package handler

import (
	"encoding/json"
	"net/http"

	"github.com/agentnetwork/agent-gateway/internal/service"
	"github.com/agentnetwork/agent-gateway/internal/util/logger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// writeInternalError hides the failure from the caller but records it as
// an analytics event so operators can see which path broke.
func writeInternalError(w http.ResponseWriter, r *http.Request, analytics *service.AnalyticsService, err error) {
	logger.Error("Internal error on %s: %v", r.URL.Path, err)
	analytics.RecordEvent(r.Context(), "error", map[string]any{
		"path":  r.URL.Path,
		"error": err.Error(),
	})
	writeJSONError(w, http.StatusInternalServerError, "Internal server error")
}
