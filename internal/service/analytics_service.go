package service

import (
	"context"
	"time"

	"github.com/agentnetwork/agent-gateway/internal/models"
	"github.com/agentnetwork/agent-gateway/internal/repository"
	"github.com/agentnetwork/agent-gateway/internal/telemetry"
	"github.com/agentnetwork/agent-gateway/internal/util"
	"github.com/agentnetwork/agent-gateway/internal/util/logger"
)

// Publisher is the minimal shipper interface the analytics layer needs.
type Publisher interface {
	Publish(any)
}

// EventTypes is the enumerated set the admin summary reports on.
var EventTypes = []string{
	"auth_request_created",
	"auth_poll",
	"auth_attempt",
	"message_posted",
	"messages_read",
	"secret_created",
	"question_asked",
	"peers_discovered",
	"subscription_created",
	"handoff_initiated",
	"unauthorized_request",
}

// AttemptPayload carries the caller-supplied fields an attempt log is
// derived from. The public key itself is hashed before anything is stored.
type AttemptPayload struct {
	PublicKey string
	Purpose   string
	AgentID   string
}

// AnalyticsSummary is the admin reporting view: per-type daily counters
// plus derived totals.
type AnalyticsSummary struct {
	Date     string         `json:"date"`
	Counters map[string]int `json:"counters"`
	Summary  SummaryTotals  `json:"summary"`
}

type SummaryTotals struct {
	TotalAuthAttempts    int `json:"total_auth_attempts"`
	TotalMessages        int `json:"total_messages"`
	TotalSecrets         int `json:"total_secrets"`
	UnauthorizedAttempts int `json:"unauthorized_attempts"`
}

// AnalyticsService records attempt logs and analytics events. Recording is
// best-effort: failures are logged and never fail the caller's primary
// operation, so the audit trail degrades rather than the API.
type AnalyticsService struct {
	events  repository.EventRepository
	shipper Publisher
}

func NewAnalyticsService(events repository.EventRepository, shipper Publisher) *AnalyticsService {
	return &AnalyticsService{events: events, shipper: shipper}
}

// RecordEvent appends an analytics event and bumps the per-day counter for
// its type. The counter increment is atomic in the store.
func (s *AnalyticsService) RecordEvent(ctx context.Context, eventType string, data map[string]any) {
	event := &models.AnalyticsEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	if err := s.events.PutEvent(ctx, util.NewID(), event); err != nil {
		logger.Warn("Failed to record %s event: %v", eventType, err)
		return
	}
	if _, err := s.events.IncrementCounter(ctx, eventType, today()); err != nil {
		logger.Warn("Failed to bump %s counter: %v", eventType, err)
	}
}

// RecordAttempt persists an attempt log entry and forwards a generic
// auth_attempt event carrying only the outcome.
func (s *AnalyticsService) RecordAttempt(ctx context.Context, payload AttemptPayload, success bool, reason string) {
	purpose := payload.Purpose
	if purpose == "" {
		purpose = "unknown"
	}
	entry := &models.AuthAttemptLog{
		Timestamp:     time.Now().UTC(),
		PublicKeyHash: util.HashPublicKey(payload.PublicKey),
		Purpose:       purpose,
		Success:       success,
		Reason:        reason,
		AgentID:       payload.AgentID,
	}
	if err := s.events.PutAttempt(ctx, util.NewID(), entry); err != nil {
		logger.Warn("Failed to record auth attempt: %v", err)
	}
	s.RecordEvent(ctx, "auth_attempt", map[string]any{"success": success})

	if s.shipper != nil {
		s.shipper.Publish(telemetry.AuthAuditEvent{
			Timestamp:     entry.Timestamp,
			PublicKeyHash: entry.PublicKeyHash,
			Purpose:       entry.Purpose,
			Success:       success,
			Reason:        reason,
			AgentID:       payload.AgentID,
		})
	}
}

// Summarize reads today's counters for the fixed event-type set and
// derives the admin summary totals.
func (s *AnalyticsService) Summarize(ctx context.Context) (*AnalyticsSummary, error) {
	day := today()
	counters := make(map[string]int, len(EventTypes))
	for _, eventType := range EventTypes {
		count, err := s.events.GetCounter(ctx, eventType, day)
		if err != nil {
			return nil, err
		}
		counters[eventType] = count
	}
	return &AnalyticsSummary{
		Date:     day,
		Counters: counters,
		Summary: SummaryTotals{
			TotalAuthAttempts:    counters["auth_attempt"],
			TotalMessages:        counters["message_posted"],
			TotalSecrets:         counters["secret_created"],
			UnauthorizedAttempts: counters["unauthorized_request"],
		},
	}, nil
}

// ListRecentAttempts returns up to limit attempt logs, unsorted.
func (s *AnalyticsService) ListRecentAttempts(ctx context.Context, limit int) ([]models.AuthAttemptLog, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	return s.events.ListAttempts(ctx, limit)
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}
