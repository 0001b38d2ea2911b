package handler

import (
	"encoding/json"
	"net/http"

	"github.com/agentnetwork/agent-gateway/internal/service"
	"github.com/go-chi/chi/v5"
)

// AuthHandler exposes the backchannel authentication flow.
type AuthHandler struct {
	auth      *service.AuthService
	analytics *service.AnalyticsService
}

func NewAuthHandler(auth *service.AuthService, analytics *service.AnalyticsService) *AuthHandler {
	return &AuthHandler{auth: auth, analytics: analytics}
}

// SubmitAuth handles POST /api/v2/agent/auth. Unparseable bodies are
// attempt-logged before the 400 so failed submissions stay on the audit
// trail.
func (h *AuthHandler) SubmitAuth(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.analytics.RecordAttempt(r.Context(), service.AttemptPayload{}, false, "invalid_json")
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	result, err := h.auth.Submit(r.Context(), req)
	if err != nil {
		if err == service.ErrMissingFields {
			writeJSONError(w, http.StatusBadRequest, "Missing required fields: public_key, purpose")
			return
		}
		writeInternalError(w, r, h.analytics, err)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

// PollAuth handles GET /api/v2/agent/auth/{id}.
func (h *AuthHandler) PollAuth(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := h.auth.Poll(r.Context(), id)
	if err != nil {
		if err == service.ErrNotFound {
			writeJSONError(w, http.StatusNotFound, "Auth request not found or expired")
			return
		}
		writeInternalError(w, r, h.analytics, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DescribeAuth handles GET /api/v2/agent/auth, the discovery document
// describing the flow to agents that land here first.
func (h *AuthHandler) DescribeAuth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"auth_method": "ciba",
		"description": "Client Initiated Backchannel Authentication",
		"flow":        "POST public_key and purpose to initiate auth request, then poll the returned endpoint",
		"required_fields": map[string]string{
			"public_key": "Your agent's public key (PEM or JWK format)",
			"purpose":    "Human-readable description of why access is needed",
		},
		"optional_fields": map[string]string{
			"callback_url": "URL to receive approval notification",
			"agent_id":     "Optional identifier for your agent",
		},
		"example_request": map[string]string{
			"public_key":   "-----BEGIN PUBLIC KEY-----...",
			"purpose":      "Coordinate task handoff between coding agents",
			"callback_url": "https://myagent.example/callback",
		},
		"next_step": "POST to this endpoint with required fields",
	})
}
