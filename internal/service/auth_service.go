package service

import (
	"context"
	"time"

	"github.com/agentnetwork/agent-gateway/internal/config"
	"github.com/agentnetwork/agent-gateway/internal/models"
	"github.com/agentnetwork/agent-gateway/internal/repository"
	"github.com/agentnetwork/agent-gateway/internal/util"
	"github.com/agentnetwork/agent-gateway/internal/util/logger"
)

// SubmitRequest is the parsed body of an auth submission.
type SubmitRequest struct {
	PublicKey   string `json:"public_key"`
	Purpose     string `json:"purpose"`
	CallbackURL string `json:"callback_url,omitempty"`
	AgentID     string `json:"agent_id,omitempty"`
}

// SubmitResult tells the agent where to poll and how long the request lives.
type SubmitResult struct {
	AuthRequestID string `json:"auth_request_id"`
	Status        string `json:"status"`
	PollEndpoint  string `json:"poll_endpoint"`
	ExpiresIn     int    `json:"expires_in"`
	Message       string `json:"message"`
}

// AuthRequestView is what a poll returns. Token fields are present only
// once the request is approved.
type AuthRequestView struct {
	AuthRequestID string    `json:"auth_request_id"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	AccessToken   string    `json:"access_token,omitempty"`
	TokenType     string    `json:"token_type,omitempty"`
	ExpiresIn     int       `json:"expires_in,omitempty"`
}

// AuthService drives the auth request lifecycle: submission, polling and
// the one-way pending -> approved transition.
type AuthService struct {
	auth      repository.AuthRepository
	analytics *AnalyticsService
	tokens    *TokenService
	policy    ApprovalPolicy
	cfg       config.AuthConfig
}

func NewAuthService(auth repository.AuthRepository, analytics *AnalyticsService, tokens *TokenService, policy ApprovalPolicy, cfg config.AuthConfig) *AuthService {
	return &AuthService{
		auth:      auth,
		analytics: analytics,
		tokens:    tokens,
		policy:    policy,
		cfg:       cfg,
	}
}

// Submit validates and persists a new pending auth request. Failed
// validations are still attempt-logged so the audit trail covers both
// outcomes.
func (s *AuthService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	payload := AttemptPayload{PublicKey: req.PublicKey, Purpose: req.Purpose, AgentID: req.AgentID}
	if req.PublicKey == "" || req.Purpose == "" {
		s.analytics.RecordAttempt(ctx, payload, false, "missing_fields")
		return nil, ErrMissingFields
	}

	now := time.Now().UTC()
	authRequest := &models.AuthRequest{
		ID:          util.NewID(),
		PublicKey:   req.PublicKey,
		Purpose:     req.Purpose,
		CallbackURL: req.CallbackURL,
		AgentID:     req.AgentID,
		Status:      models.StatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.RequestTTL),
	}
	if err := s.auth.PutAuthRequest(ctx, authRequest, s.cfg.RequestTTL); err != nil {
		return nil, err
	}

	s.analytics.RecordAttempt(ctx, payload, true, "request_created")
	s.analytics.RecordEvent(ctx, "auth_request_created", map[string]any{"request_id": authRequest.ID})
	logger.Info("Auth request %s created for purpose %q", authRequest.ID, authRequest.Purpose)

	return &SubmitResult{
		AuthRequestID: authRequest.ID,
		Status:        models.StatusPending,
		PollEndpoint:  "/api/v2/agent/auth/" + authRequest.ID,
		ExpiresIn:     int(s.cfg.RequestTTL.Seconds()),
		Message:       "Awaiting human approval. Poll the endpoint or await callback.",
	}, nil
}

// Poll reads the current state of an auth request and, while pending,
// advances the poll counter. When the approval policy fires the request
// transitions to approved and a token is minted; the transition is
// one-way and later polls return the stored state unchanged.
func (s *AuthService) Poll(ctx context.Context, id string) (*AuthRequestView, error) {
	authRequest, err := s.auth.GetAuthRequest(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			s.analytics.RecordEvent(ctx, "auth_poll_not_found", map[string]any{"request_id": id})
			return nil, ErrNotFound
		}
		return nil, err
	}
	// The store's TTL normally removes expired entries; the explicit check
	// closes the clock-edge gap between logical and physical expiry.
	if !authRequest.ExpiresAt.IsZero() && time.Now().UTC().After(authRequest.ExpiresAt) {
		s.analytics.RecordEvent(ctx, "auth_poll_not_found", map[string]any{"request_id": id})
		return nil, ErrNotFound
	}

	s.analytics.RecordEvent(ctx, "auth_poll", map[string]any{
		"request_id": id,
		"status":     authRequest.Status,
	})

	if authRequest.Status == models.StatusPending {
		pollCount, err := s.auth.IncrementPollCount(ctx, id, s.cfg.PollCounterTTL)
		if err != nil {
			return nil, err
		}
		if s.policy.Approved(authRequest, int(pollCount)) {
			if err := s.approve(ctx, authRequest); err != nil {
				return nil, err
			}
		}
	}

	view := &AuthRequestView{
		AuthRequestID: id,
		Status:        authRequest.Status,
		CreatedAt:     authRequest.CreatedAt,
	}
	if authRequest.Status == models.StatusApproved {
		view.AccessToken = authRequest.Token
		view.TokenType = "Bearer"
		view.ExpiresIn = s.tokens.TokenTTLSeconds()
	}
	return view, nil
}

func (s *AuthService) approve(ctx context.Context, authRequest *models.AuthRequest) error {
	tokenValue, err := s.tokens.Issue(ctx, authRequest.ID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	authRequest.Status = models.StatusApproved
	authRequest.Token = tokenValue
	authRequest.ApprovedAt = &now
	if err := s.auth.PutAuthRequest(ctx, authRequest, s.cfg.RequestTTL); err != nil {
		return err
	}
	logger.Info("Auth request %s approved", authRequest.ID)
	return nil
}
