package config

import (
	"time"

	"github.com/agentnetwork/agent-gateway/internal/client"
	"github.com/agentnetwork/agent-gateway/internal/util/logger"
)

type Config struct {
	Env      string        `yaml:"env"`
	Port     int           `yaml:"port"`
	AdminKey string        `yaml:"admin_key"`
	Logger   logger.Config `yaml:"logger"`

	Redis client.RedisConfig `yaml:"redis"`

	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// AuthConfig controls the backchannel auth flow timings and the
// demo approval policy.
type AuthConfig struct {
	RequestTTL        time.Duration `yaml:"request_ttl"`
	TokenTTL          time.Duration `yaml:"token_ttl"`
	PollCounterTTL    time.Duration `yaml:"poll_counter_ttl"`
	ApprovalThreshold int           `yaml:"approval_threshold"`
	MessageDefaultTTL time.Duration `yaml:"message_default_ttl"`
}

type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerWindow int           `yaml:"requests_per_window"`
	Window            time.Duration `yaml:"window"`
}

type TelemetryConfig struct {
	Kafka KafkaAuditConfig `yaml:"kafka"`
}

type KafkaAuditConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Brokers       []string      `yaml:"brokers"`
	TopicRequests string        `yaml:"topic_requests"`
	TopicAuth     string        `yaml:"topic_auth"`
	BatchSize     int           `yaml:"batch_size"`
	FlushEvery    time.Duration `yaml:"flush_every"`
	QueueCapacity int           `yaml:"queue_capacity"`
	DialTimeout   time.Duration `yaml:"dial_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	TLS           bool          `yaml:"tls"`
}

// ApplyDefaults fills unset fields with production defaults. TTLs match
// the published API contract: auth requests live one hour, tokens one day.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Auth.RequestTTL == 0 {
		c.Auth.RequestTTL = time.Hour
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Auth.PollCounterTTL == 0 {
		c.Auth.PollCounterTTL = c.Auth.RequestTTL
	}
	if c.Auth.ApprovalThreshold == 0 {
		c.Auth.ApprovalThreshold = 3
	}
	if c.Auth.MessageDefaultTTL == 0 {
		c.Auth.MessageDefaultTTL = time.Hour
	}
	if c.RateLimit.RequestsPerWindow == 0 {
		c.RateLimit.RequestsPerWindow = 30
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
}
