package repository

import (
	"context"
	"errors"
	"time"

	"github.com/agentnetwork/agent-gateway/internal/models"
)

// ErrNotFound is returned when a record is absent or its TTL elapsed.
// The two cases are indistinguishable at the store level.
var ErrNotFound = errors.New("record not found")

type AuthRepository interface {
	PutAuthRequest(ctx context.Context, req *models.AuthRequest, ttl time.Duration) error
	GetAuthRequest(ctx context.Context, id string) (*models.AuthRequest, error)
	IncrementPollCount(ctx context.Context, id string, ttl time.Duration) (int64, error)
	PutToken(ctx context.Context, value string, token *models.Token, ttl time.Duration) error
	GetToken(ctx context.Context, value string) (*models.Token, error)
}

type EventRepository interface {
	PutEvent(ctx context.Context, id string, event *models.AnalyticsEvent) error
	IncrementCounter(ctx context.Context, eventType string, day string) (int64, error)
	GetCounter(ctx context.Context, eventType string, day string) (int, error)
	PutAttempt(ctx context.Context, id string, entry *models.AuthAttemptLog) error
	ListAttempts(ctx context.Context, limit int) ([]models.AuthAttemptLog, error)
}

type MessageRepository interface {
	PutMessage(ctx context.Context, msg *models.Message, ttl time.Duration) error
}
