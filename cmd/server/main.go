package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentnetwork/agent-gateway/internal/client"
	"github.com/agentnetwork/agent-gateway/internal/config"
	"github.com/agentnetwork/agent-gateway/internal/handler"
	"github.com/agentnetwork/agent-gateway/internal/repository"
	"github.com/agentnetwork/agent-gateway/internal/service"
	"github.com/agentnetwork/agent-gateway/internal/telemetry"
	"github.com/agentnetwork/agent-gateway/internal/util/logger"
)

var version = "0.1.0"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config from %s: %v", *configPath, err)
	}
	logger.ReplaceGlobal(&cfg.Logger)
	defer logger.Sync()

	if cfg.AdminKey == "" {
		logger.Warn("No admin_key configured; admin endpoints will reject all requests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	rdb, err := client.NewRedisClient(ctx, cfg.Redis)
	cancel()
	if err != nil {
		logger.Fatal("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	shipper, err := telemetry.NewKafkaAuditShipper(telemetry.KafkaConfig{
		Enabled:       cfg.Telemetry.Kafka.Enabled,
		Brokers:       cfg.Telemetry.Kafka.Brokers,
		TopicRequests: cfg.Telemetry.Kafka.TopicRequests,
		TopicAuth:     cfg.Telemetry.Kafka.TopicAuth,
		BatchSize:     cfg.Telemetry.Kafka.BatchSize,
		FlushEvery:    cfg.Telemetry.Kafka.FlushEvery,
		QueueCapacity: cfg.Telemetry.Kafka.QueueCapacity,
		DialTimeout:   cfg.Telemetry.Kafka.DialTimeout,
		WriteTimeout:  cfg.Telemetry.Kafka.WriteTimeout,
		TLS:           cfg.Telemetry.Kafka.TLS,
	})
	if err != nil {
		logger.Fatal("Failed to build Kafka audit shipper: %v", err)
	}
	shipper.Start()

	authRepo := repository.NewRedisAuthRepository(rdb)
	eventRepo := repository.NewRedisEventRepository(rdb)
	messageRepo := repository.NewRedisMessageRepository(rdb)

	analytics := service.NewAnalyticsService(eventRepo, shipper)
	tokens := service.NewTokenService(authRepo, cfg.Auth.TokenTTL)
	policy := service.PollCountPolicy{Threshold: cfg.Auth.ApprovalThreshold}
	auth := service.NewAuthService(authRepo, analytics, tokens, policy, cfg.Auth)

	router := handler.NewRouter(handler.RouterDeps{
		Config:     cfg,
		Auth:       handler.NewAuthHandler(auth, analytics),
		Capability: handler.NewCapabilityHandler(messageRepo, analytics, cfg.Auth),
		Admin:      handler.NewAdminHandler(analytics),
		Health:     handler.NewHealthHandler(version, cfg.Env),
		Tokens:     tokens,
		Analytics:  analytics,
		Shipper:    shipper,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("Agent gateway %s listening on %s (env=%s)", version, srv.Addr, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown: %v", err)
	}
	shipper.Stop(shutdownCtx)
	logger.Info("Agent gateway stopped")
}
