package handler

import (
	"net/http"
	"time"
)

var startTime = time.Now()

// HealthHandler serves the service descriptor at / and /health.
type HealthHandler struct {
	version string
	env     string
}

func NewHealthHandler(version, env string) *HealthHandler {
	return &HealthHandler{version: version, env: env}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"service":      "agent-gateway",
		"version":      h.version,
		"spec_version": "draft-01",
		"environment":  h.env,
		"uptime":       time.Since(startTime).Round(time.Second).String(),
	})
}
