package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/agentnetwork/agent-gateway/internal/config"
	"github.com/agentnetwork/agent-gateway/internal/models"
	"github.com/agentnetwork/agent-gateway/internal/repository"
	"github.com/agentnetwork/agent-gateway/internal/service"
	"github.com/agentnetwork/agent-gateway/internal/util"
)

// CapabilityHandler serves the token-gated capability endpoints. These are
// thin: the interesting state machine lives in the auth flow, and every
// call here just records analytics and answers from the store or a stub.
type CapabilityHandler struct {
	messages  repository.MessageRepository
	analytics *service.AnalyticsService
	cfg       config.AuthConfig
}

func NewCapabilityHandler(messages repository.MessageRepository, analytics *service.AnalyticsService, cfg config.AuthConfig) *CapabilityHandler {
	return &CapabilityHandler{messages: messages, analytics: analytics, cfg: cfg}
}

type postMessageRequest struct {
	Content   string `json:"content"`
	Recipient string `json:"recipient"`
	Topic     string `json:"topic"`
	TTL       int    `json:"ttl"`
}

// PostMessage handles POST /api/v2/agent/messages.
func (h *CapabilityHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.TTL <= 0 {
		req.TTL = int(h.cfg.MessageDefaultTTL.Seconds())
	}

	msg := &models.Message{
		ID:        util.NewID(),
		Content:   req.Content,
		Recipient: req.Recipient,
		Topic:     req.Topic,
		CreatedAt: time.Now().UTC(),
		TTL:       req.TTL,
	}
	if err := h.messages.PutMessage(r.Context(), msg, time.Duration(req.TTL)*time.Second); err != nil {
		writeInternalError(w, r, h.analytics, err)
		return
	}

	h.analytics.RecordEvent(r.Context(), "message_posted", map[string]any{"message_id": msg.ID})
	writeJSON(w, http.StatusCreated, map[string]any{
		"message_id": msg.ID,
		"status":     "delivered",
		"created_at": msg.CreatedAt,
	})
}

// ReadMessages handles GET /api/v2/agent/messages. Delivery is
// write-only for now; readers get an empty page.
func (h *CapabilityHandler) ReadMessages(w http.ResponseWriter, r *http.Request) {
	h.analytics.RecordEvent(r.Context(), "messages_read", map[string]any{})
	writeJSON(w, http.StatusOK, map[string]any{
		"messages":    []any{},
		"next_cursor": nil,
		"has_more":    false,
	})
}

// AskQuestion handles POST /api/v2/agent/questions.
func (h *CapabilityHandler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	questionID := util.NewID()
	h.analytics.RecordEvent(r.Context(), "question_asked", map[string]any{"question_id": questionID})
	writeJSON(w, http.StatusAccepted, map[string]any{
		"question_id":   questionID,
		"status":        "pending",
		"poll_endpoint": "/api/v2/agent/questions/" + questionID,
	})
}

// DiscoverPeers handles GET /api/v2/agent/peers with an optional
// ?status= filter.
func (h *CapabilityHandler) DiscoverPeers(w http.ResponseWriter, r *http.Request) {
	h.analytics.RecordEvent(r.Context(), "peers_discovered", map[string]any{})

	peers := peerDirectory()
	if statusFilter := r.URL.Query().Get("status"); statusFilter != "" {
		filtered := peers[:0]
		for _, p := range peers {
			if p.Status == statusFilter {
				filtered = append(filtered, p)
			}
		}
		peers = filtered
	}

	online := 0
	for _, p := range peers {
		if p.Status == "online" {
			online++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"peers":               peers,
		"total":               len(peers),
		"online_count":        online,
		"network_version":     "0.1",
		"discovery_timestamp": time.Now().UTC(),
	})
}

type subscribeRequest struct {
	Topic string `json:"topic"`
}

// Subscribe handles POST /api/v2/agent/subscribe.
func (h *CapabilityHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	subscriptionID := util.NewID()
	h.analytics.RecordEvent(r.Context(), "subscription_created", map[string]any{
		"topic":           req.Topic,
		"subscription_id": subscriptionID,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"subscription_id": subscriptionID,
		"topic":           req.Topic,
		"status":          "active",
	})
}

type createSecretRequest struct {
	TTL int `json:"ttl"`
}

// CreateSecret handles POST /api/v2/secret.
func (h *CapabilityHandler) CreateSecret(w http.ResponseWriter, r *http.Request) {
	var req createSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.TTL <= 0 {
		req.TTL = 604800
	}

	secretKey := util.NewID()
	h.analytics.RecordEvent(r.Context(), "secret_created", map[string]any{
		"secret_key": secretKey[:8] + "...",
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"secret_key": secretKey,
		"secret_url": "https://onetimesecret.com/secret/" + secretKey,
		"expires_in": req.TTL,
		"status":     "created",
	})
}

type handoffRequest struct {
	TargetAgent string `json:"target_agent"`
}

// Handoff handles POST /api/v2/agent/handoff.
func (h *CapabilityHandler) Handoff(w http.ResponseWriter, r *http.Request) {
	var req handoffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	handoffID := util.NewID()
	h.analytics.RecordEvent(r.Context(), "handoff_initiated", map[string]any{
		"handoff_id":   handoffID,
		"target_agent": req.TargetAgent,
	})
	writeJSON(w, http.StatusAccepted, map[string]any{
		"handoff_id":   handoffID,
		"status":       "initiated",
		"target_agent": req.TargetAgent,
	})
}

// peerDirectory returns the static peer list. A real deployment would back
// this with a registry; the directory shape is the contract.
func peerDirectory() []models.Peer {
	now := time.Now().UTC().Format(time.RFC3339)
	return []models.Peer{
		{
			AgentID:      "claude-code-primary",
			Name:         "Claude Code (Primary)",
			Provider:     "anthropic",
			Capabilities: []string{"message", "secret", "handoff", "code_review"},
			Status:       "online",
			LastSeen:     now,
			Metadata:     map[string]any{"context": "software_development"},
		},
		{
			AgentID:      "github-copilot-workspace",
			Name:         "GitHub Copilot Workspace",
			Provider:     "github",
			Capabilities: []string{"message", "handoff", "code_generation"},
			Status:       "online",
			LastSeen:     now,
			Metadata:     map[string]any{"context": "ide_integration"},
		},
		{
			AgentID:      "devin-dev-agent",
			Name:         "Devin",
			Provider:     "cognition",
			Capabilities: []string{"message", "secret", "handoff", "autonomous_coding"},
			Status:       "busy",
			LastSeen:     now,
			Metadata:     map[string]any{"context": "autonomous_development"},
		},
		{
			AgentID:      "cursor-composer",
			Name:         "Cursor Composer",
			Provider:     "cursor",
			Capabilities: []string{"message", "handoff", "multi_file_edit"},
			Status:       "online",
			LastSeen:     now,
			Metadata:     map[string]any{"context": "editor_integration"},
		},
		{
			AgentID:      "codex-cli-agent",
			Name:         "OpenAI Codex CLI",
			Provider:     "openai",
			Capabilities: []string{"message", "secret", "shell_execution"},
			Status:       "offline",
			LastSeen:     "2025-11-28T08:30:00Z",
			Metadata:     map[string]any{"context": "terminal_automation"},
		},
		{
			AgentID:      "windsurf-cascade",
			Name:         "Windsurf Cascade",
			Provider:     "codeium",
			Capabilities: []string{"message", "handoff", "code_flow"},
			Status:       "online",
			LastSeen:     now,
			Metadata:     map[string]any{"context": "ide_integration"},
		},
	}
}
