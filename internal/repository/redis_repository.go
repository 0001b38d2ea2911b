package repository

import (
	"context"
	"time"

	"github.com/agentnetwork/agent-gateway/internal/client"
	"github.com/agentnetwork/agent-gateway/internal/models"
	"github.com/agentnetwork/agent-gateway/internal/util/logger"
)

// Key prefixes. The auth namespace holds requests, poll counters and
// tokens; the events namespace holds analytics events, daily counters and
// attempt logs; messages live on their own prefix.
const (
	authRequestPrefix = "auth_request:"
	pollCountPrefix   = "poll_count:"
	tokenPrefix       = "token:"
	eventPrefix       = "event:"
	counterPrefix     = "counter:"
	attemptPrefix     = "auth_attempt:"
	messagePrefix     = "message:"
)

type redisAuthRepository struct {
	rdb *client.RedisClient
}

func NewRedisAuthRepository(rdb *client.RedisClient) AuthRepository {
	return &redisAuthRepository{rdb: rdb}
}

func (r *redisAuthRepository) PutAuthRequest(ctx context.Context, req *models.AuthRequest, ttl time.Duration) error {
	return r.rdb.SetJSON(ctx, authRequestPrefix+req.ID, req, ttl)
}

func (r *redisAuthRepository) GetAuthRequest(ctx context.Context, id string) (*models.AuthRequest, error) {
	var req models.AuthRequest
	if err := r.rdb.GetJSON(ctx, authRequestPrefix+id, &req); err != nil {
		if client.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// IncrementPollCount advances the poll counter atomically so concurrent
// pollers for the same request never lose an update.
func (r *redisAuthRepository) IncrementPollCount(ctx context.Context, id string, ttl time.Duration) (int64, error) {
	return r.rdb.IncrementWithTTL(ctx, pollCountPrefix+id, ttl)
}

func (r *redisAuthRepository) PutToken(ctx context.Context, value string, token *models.Token, ttl time.Duration) error {
	return r.rdb.SetJSON(ctx, tokenPrefix+value, token, ttl)
}

func (r *redisAuthRepository) GetToken(ctx context.Context, value string) (*models.Token, error) {
	var token models.Token
	if err := r.rdb.GetJSON(ctx, tokenPrefix+value, &token); err != nil {
		if client.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &token, nil
}

type redisEventRepository struct {
	rdb *client.RedisClient
}

func NewRedisEventRepository(rdb *client.RedisClient) EventRepository {
	return &redisEventRepository{rdb: rdb}
}

func (r *redisEventRepository) PutEvent(ctx context.Context, id string, event *models.AnalyticsEvent) error {
	return r.rdb.SetJSON(ctx, eventPrefix+id, event, 0)
}

func (r *redisEventRepository) IncrementCounter(ctx context.Context, eventType string, day string) (int64, error) {
	return r.rdb.IncrementWithTTL(ctx, counterKey(eventType, day), 48*time.Hour)
}

func (r *redisEventRepository) GetCounter(ctx context.Context, eventType string, day string) (int, error) {
	return r.rdb.GetInt(ctx, counterKey(eventType, day))
}

func (r *redisEventRepository) PutAttempt(ctx context.Context, id string, entry *models.AuthAttemptLog) error {
	return r.rdb.SetJSON(ctx, attemptPrefix+id, entry, 0)
}

// ListAttempts returns up to limit attempt logs. Ordering follows the scan
// cursor, not the entry timestamps.
func (r *redisEventRepository) ListAttempts(ctx context.Context, limit int) ([]models.AuthAttemptLog, error) {
	keys, err := r.rdb.ScanPrefix(ctx, attemptPrefix, limit)
	if err != nil {
		return nil, err
	}
	attempts := make([]models.AuthAttemptLog, 0, len(keys))
	for _, key := range keys {
		var entry models.AuthAttemptLog
		if err := r.rdb.GetJSON(ctx, key, &entry); err != nil {
			if client.IsNotFound(err) {
				continue
			}
			logger.Warn("Skipping unreadable attempt log %s: %v", key, err)
			continue
		}
		attempts = append(attempts, entry)
	}
	return attempts, nil
}

func counterKey(eventType, day string) string {
	return counterPrefix + eventType + ":" + day
}

type redisMessageRepository struct {
	rdb *client.RedisClient
}

func NewRedisMessageRepository(rdb *client.RedisClient) MessageRepository {
	return &redisMessageRepository{rdb: rdb}
}

func (r *redisMessageRepository) PutMessage(ctx context.Context, msg *models.Message, ttl time.Duration) error {
	return r.rdb.SetJSON(ctx, messagePrefix+msg.ID, msg, ttl)
}
