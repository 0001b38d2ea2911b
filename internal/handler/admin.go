package handler

import (
	"net/http"

	"github.com/agentnetwork/agent-gateway/internal/service"
)

// AdminHandler serves the operator-facing reporting endpoints. Access
// control (X-Admin-Key) is applied by middleware on the route group.
type AdminHandler struct {
	analytics *service.AnalyticsService
}

func NewAdminHandler(analytics *service.AnalyticsService) *AdminHandler {
	return &AdminHandler{analytics: analytics}
}

// GetAnalytics handles GET /api/v2/admin/analytics.
func (h *AdminHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	summary, err := h.analytics.Summarize(r.Context())
	if err != nil {
		writeInternalError(w, r, h.analytics, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetAuthAttempts handles GET /api/v2/admin/auth-attempts.
func (h *AdminHandler) GetAuthAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.analytics.ListRecentAttempts(r.Context(), 50)
	if err != nil {
		writeInternalError(w, r, h.analytics, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"auth_attempts": attempts,
		"total":         len(attempts),
	})
}
