package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/gracestack/church-comms-platform/internal/api/router"
	appconfig "github.com/gracestack/church-comms-platform/internal/config"
	"github.com/gracestack/church-comms-platform/internal/directory"
	"github.com/gracestack/church-comms-platform/internal/groups"
	"github.com/gracestack/church-comms-platform/internal/messaging"
	observemetrics "github.com/gracestack/church-comms-platform/internal/observability/metrics"
	"github.com/gracestack/church-comms-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting church-comms-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		defer func() { _ = redisClient.Close() }()
	}

	registry := prometheus.NewRegistry()
	msgMetrics := observemetrics.NewMessagingMetrics(registry)

	store := messaging.NewStore(pool)
	directoryRepo := directory.NewPostgresRepository(pool)
	groupStore := groups.NewPostgresStore(pool)

	msgLogger := logger.With("component", "messaging")
	service := messaging.NewService(messaging.ServiceConfig{
		Identity:      messaging.NewIdentityResolver(directoryRepo, msgLogger),
		Conversations: messaging.NewConversationResolver(store, cfg.ConversationScanWindow, msgLogger),
		Tenants:       messaging.NewTenantAttributor(store, groupStore, cfg.TenantFallbackHeuristic, msgLogger),
		Persister:     store,
		Dedupe:        messaging.NewDedupeStore(redisClient, cfg.SMSDedupeTTL),
		Logger:        msgLogger,
	})
	messagingHandler := messaging.NewHandler(service, cfg.SMSProvider, msgLogger, msgMetrics)

	var defaultTenant uuid.UUID
	if cfg.DefaultTenantID != "" {
		defaultTenant, err = uuid.Parse(cfg.DefaultTenantID)
		if err != nil {
			logger.Error("invalid DEFAULT_TENANT_ID", "error", err)
			os.Exit(1)
		}
	}

	r := router.New(&router.Config{
		Logger:           logger,
		MessagingHandler: messagingHandler,
		MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		DefaultTenantID:  defaultTenant,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
