package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/agentnetwork/agent-gateway/internal/models"
	"github.com/agentnetwork/agent-gateway/internal/repository"
)

const bearerPrefix = "Bearer "

// TokenService mints bearer tokens for approved auth requests and
// validates them on every protected call. Tokens are opaque URL-safe
// strings; validity is purely presence in the store, so expiry and
// revocation both reduce to the entry being gone.
type TokenService struct {
	auth     repository.AuthRepository
	tokenTTL time.Duration
}

func NewTokenService(auth repository.AuthRepository, tokenTTL time.Duration) *TokenService {
	return &TokenService{auth: auth, tokenTTL: tokenTTL}
}

// Issue mints a token for the given auth request. Called exactly once per
// request, at the approval transition.
func (s *TokenService) Issue(ctx context.Context, authRequestID string) (string, error) {
	value, err := generateTokenValue()
	if err != nil {
		return "", err
	}
	token := &models.Token{
		AuthRequestID: authRequestID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.auth.PutToken(ctx, value, token, s.tokenTTL); err != nil {
		return "", fmt.Errorf("persist token: %w", err)
	}
	return value, nil
}

// Validate checks an Authorization header and returns the token value on
// success. Any valid token authorizes any protected operation; there is
// no per-token scoping.
func (s *TokenService) Validate(ctx context.Context, bearerHeader string) (string, error) {
	if !strings.HasPrefix(bearerHeader, bearerPrefix) {
		return "", ErrMissingBearer
	}
	value := strings.TrimPrefix(bearerHeader, bearerPrefix)
	if _, err := s.auth.GetToken(ctx, value); err != nil {
		if err == repository.ErrNotFound {
			return "", ErrInvalidToken
		}
		return "", err
	}
	return value, nil
}

// TokenTTLSeconds reports the configured token lifetime for response
// expires_in fields.
func (s *TokenService) TokenTTLSeconds() int {
	return int(s.tokenTTL.Seconds())
}

func generateTokenValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
