package telemetry

import "time"

// HTTP request audit
type RequestAuditEvent struct {
	Timestamp  time.Time `json:"@timestamp"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	DurationMs int64     `json:"duration_ms"`
	RequestID  string    `json:"request_id,omitempty"`
}

// Authentication attempt audit
type AuthAuditEvent struct {
	Timestamp     time.Time `json:"@timestamp"`
	PublicKeyHash string    `json:"public_key_hash,omitempty"`
	Purpose       string    `json:"purpose,omitempty"`
	Success       bool      `json:"success"`
	Reason        string    `json:"reason,omitempty"`
	AgentID       string    `json:"agent_id,omitempty"`
}
