package util

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID returns a unique, time-ordered opaque identifier (UUIDv7).
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does; fall back to v4.
		return uuid.NewString()
	}
	return id.String()
}

// HashPublicKey returns a truncated one-way hash of credential material.
// Raw keys must never reach logs or the event store; this is what gets
// persisted instead.
func HashPublicKey(publicKey string) string {
	sum := sha256.Sum256([]byte(publicKey))
	return hex.EncodeToString(sum[:])[:16]
}
