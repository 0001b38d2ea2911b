package client

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/agentnetwork/agent-gateway/internal/util/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RedisConfig defines configuration for the Redis client
type RedisConfig struct {
	Address         string        `yaml:"address"`
	Password        string        `yaml:"password"`
	DB              int           `yaml:"db"`
	PoolSize        int           `yaml:"pool_size"`
	MinIdleConns    int           `yaml:"min_idle_conns"`
	MaxRetries      int           `yaml:"max_retries"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	PoolTimeout     time.Duration `yaml:"pool_timeout"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisClient wraps redis.Client with JSON helpers and prefix scans.
// All durable gateway state lives behind this client.
type RedisClient struct {
	*redis.Client
	config RedisConfig
	mu     sync.Mutex
	closed bool
}

// NewRedisClient creates a new Redis client instance and verifies
// connectivity before returning.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*RedisClient, error) {
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 10 * runtime.GOMAXPROCS(0)
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = cfg.PoolSize / 2
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 3 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
	if cfg.PoolTimeout == 0 {
		cfg.PoolTimeout = 4 * time.Second
	}
	if cfg.ConnMaxIdleTime == 0 {
		cfg.ConnMaxIdleTime = 5 * time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:            cfg.Address,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		MaxRetries:      cfg.MaxRetries,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		PoolTimeout:     cfg.PoolTimeout,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	rc := &RedisClient{
		Client: client,
		config: cfg,
	}
	client.AddHook(tracingHook{})

	logger.Info("Redis client connected to %s (DB:%d)", cfg.Address, cfg.DB)
	return rc, nil
}

// Close terminates the Redis client connection
func (c *RedisClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	logger.Info("Closing Redis client")
	return c.Client.Close()
}

// HealthCheck verifies Redis connectivity
func (c *RedisClient) HealthCheck(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// GetInt returns an integer value, 0 when the key is absent.
func (c *RedisClient) GetInt(ctx context.Context, key string) (int, error) {
	val, err := c.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(val)
}

// IncrementWithTTL atomically increments a key and sets TTL on first write.
// Counter advancement goes through here so concurrent writers never lose
// updates.
func (c *RedisClient) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	script := redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current == false then
  current = 0
  redis.call("SET", KEYS[1], current, "EX", ARGV[1])
end
return redis.call("INCR", KEYS[1])
`)
	val, err := script.Run(ctx, c.Client, []string{key}, int(ttl.Seconds())).Int64()
	if err != nil {
		return 0, fmt.Errorf("incrementWithTTL failed: %w", err)
	}
	return val, nil
}

// SetJSON marshals and sets a JSON value with the given TTL.
func (c *RedisClient) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, jsonData, ttl).Err()
}

// GetJSON retrieves and unmarshals a JSON value. Returns redis.Nil when
// the key is absent or expired.
func (c *RedisClient) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// ScanPrefix returns up to limit keys matching prefix. Order follows the
// Redis scan cursor; callers must not rely on it.
func (c *RedisClient) ScanPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := c.Scan(ctx, cursor, prefix+"*", int64(limit)).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		if len(keys) >= limit || next == 0 {
			break
		}
		cursor = next
	}
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

// IsNotFound reports whether err is the Redis missing-key sentinel.
func IsNotFound(err error) bool {
	return err == redis.Nil
}

type tracingHook struct{}

func (t tracingHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (t tracingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		span := trace.SpanFromContext(ctx)
		if span.IsRecording() {
			span.SetAttributes(
				attribute.String("db.system", "redis"),
				attribute.String("db.operation", cmd.Name()),
			)
		}
		err := next(ctx, cmd)
		if span.IsRecording() {
			if cmdErr := cmd.Err(); cmdErr != nil && cmdErr != redis.Nil {
				span.RecordError(cmdErr)
			}
		}
		return err
	}
}

func (t tracingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		span := trace.SpanFromContext(ctx)
		if span.IsRecording() {
			span.SetAttributes(
				attribute.String("db.system", "redis"),
				attribute.String("db.operation", "pipeline"),
				attribute.Int("db.command_count", len(cmds)),
			)
		}
		return next(ctx, cmds)
	}
}
