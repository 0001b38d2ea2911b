package models

import "time"

// Auth request states. A request only ever moves pending -> approved;
// expiry surfaces to callers as not-found rather than a third state.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

// AuthRequest is a backchannel authentication request awaiting approval.
// Token is set exactly once, at the pending -> approved transition, and
// never changes afterwards.
type AuthRequest struct {
	ID          string     `json:"id"`
	PublicKey   string     `json:"public_key"`
	Purpose     string     `json:"purpose"`
	CallbackURL string     `json:"callback_url,omitempty"`
	AgentID     string     `json:"agent_id,omitempty"`
	Status      string     `json:"status"`
	Token       string     `json:"token,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// Token is a bearer credential minted on approval. Keyed in the store by
// its opaque value; AuthRequestID is a non-owning back-reference.
type Token struct {
	AuthRequestID string    `json:"auth_request_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// AnalyticsEvent is an append-only analytics record.
type AnalyticsEvent struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// AuthAttemptLog records one authentication attempt, successful or not.
// Only a truncated hash of the supplied public key is ever stored.
type AuthAttemptLog struct {
	Timestamp     time.Time `json:"timestamp"`
	PublicKeyHash string    `json:"public_key_hash"`
	Purpose       string    `json:"purpose"`
	Success       bool      `json:"success"`
	Reason        string    `json:"reason,omitempty"`
	AgentID       string    `json:"agent_id,omitempty"`
}

// Message is an agent-to-agent message held in the store until its TTL runs out.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Recipient string    `json:"recipient,omitempty"`
	Topic     string    `json:"topic,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	TTL       int       `json:"ttl"`
}

// Peer describes an agent visible in the peer directory.
type Peer struct {
	AgentID      string         `json:"agent_id"`
	Name         string         `json:"name"`
	Provider     string         `json:"provider"`
	Capabilities []string       `json:"capabilities"`
	Status       string         `json:"status"`
	LastSeen     string         `json:"last_seen"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}
