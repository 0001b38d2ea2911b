package telemetry

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig configures the audit shipper. Disabled shippers accept and
// discard events so callers never need a nil check.
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	TopicRequests string
	TopicAuth     string
	BatchSize     int
	FlushEvery    time.Duration
	QueueCapacity int
	DialTimeout   time.Duration
	WriteTimeout  time.Duration
	TLS           bool
}

// KafkaAuditShipper forwards audit events to Kafka on a buffered channel.
// Publishing never blocks the request path; events are dropped on
// backpressure.
type KafkaAuditShipper struct {
	cfg       KafkaConfig
	wRequests *kafka.Writer
	wAuth     *kafka.Writer
	ch        chan any
	stop      chan struct{}
}

func NewKafkaAuditShipper(cfgIn KafkaConfig) (*KafkaAuditShipper, error) {
	cfg := cfgIn
	if !cfg.Enabled {
		return &KafkaAuditShipper{cfg: cfg, ch: make(chan any), stop: make(chan struct{})}, nil
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = 2 * time.Second
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = cfg.BatchSize * 4
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	tr := &kafka.Transport{
		DialTimeout: cfg.DialTimeout,
	}
	if cfg.TLS {
		tr.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	var wRequests, wAuth *kafka.Writer
	if cfg.TopicRequests != "" {
		wRequests = newWriter(cfg, tr, cfg.TopicRequests)
	}
	if cfg.TopicAuth != "" {
		wAuth = newWriter(cfg, tr, cfg.TopicAuth)
	}

	return &KafkaAuditShipper{
		cfg:       cfg,
		wRequests: wRequests,
		wAuth:     wAuth,
		ch:        make(chan any, cfg.QueueCapacity),
		stop:      make(chan struct{}),
	}, nil
}

func newWriter(cfg KafkaConfig, tr *kafka.Transport, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Transport:              tr,
		AllowAutoTopicCreation: false,
		Async:                  true,
		BatchTimeout:           cfg.FlushEvery,
		BatchSize:              cfg.BatchSize,
		WriteTimeout:           cfg.WriteTimeout,
	}
}

func (s *KafkaAuditShipper) Start() {
	if !s.cfg.Enabled {
		return
	}
	go s.loop()
}

func (s *KafkaAuditShipper) Stop(ctx context.Context) {
	if !s.cfg.Enabled {
		return
	}
	close(s.stop)
	drain := time.After(500 * time.Millisecond)
	for {
		select {
		case ev := <-s.ch:
			_ = s.dispatch(ev)
		case <-drain:
			if s.wRequests != nil {
				_ = s.wRequests.Close()
			}
			if s.wAuth != nil {
				_ = s.wAuth.Close()
			}
			return
		}
	}
}

func (s *KafkaAuditShipper) Publish(ev any) {
	if !s.cfg.Enabled {
		return
	}
	select {
	case s.ch <- ev:
	default:
		// drop on backpressure
	}
}

func (s *KafkaAuditShipper) loop() {
	for {
		select {
		case ev := <-s.ch:
			_ = s.dispatch(ev)
		case <-s.stop:
			for {
				select {
				case ev := <-s.ch:
					_ = s.dispatch(ev)
				default:
					return
				}
			}
		}
	}
}

func (s *KafkaAuditShipper) dispatch(ev any) error {
	now := time.Now().UTC()
	m := map[string]any{}
	b, _ := json.Marshal(ev)
	_ = json.Unmarshal(b, &m)
	if _, ok := m["@timestamp"]; !ok {
		m["@timestamp"] = now
	}
	payload, _ := json.Marshal(m)

	key := func(field string) []byte {
		if v, ok := m[field]; ok && v != nil {
			if str, ok := v.(string); ok && str != "" {
				return []byte(str)
			}
		}
		return nil
	}

	var w *kafka.Writer
	var msgKey []byte
	switch ev.(type) {
	case AuthAuditEvent:
		w = s.wAuth
		msgKey = key("public_key_hash")
	default:
		w = s.wRequests
		msgKey = key("request_id")
	}
	if w == nil {
		return nil
	}
	return w.WriteMessages(context.Background(), kafka.Message{
		Key:   msgKey,
		Value: payload,
		Time:  now,
	})
}
