package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"basegraph.app/prsync/common/id"
	"basegraph.app/prsync/common/logger"
	"basegraph.app/prsync/common/otel"
	"basegraph.app/prsync/core/config"
	"basegraph.app/prsync/internal/azdo"
	"basegraph.app/prsync/internal/http/middleware"
	httprouter "basegraph.app/prsync/internal/http/router"
	"basegraph.app/prsync/internal/ledger"
	"basegraph.app/prsync/internal/service"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "prsync starting", "env", cfg.Env, "organization", cfg.AzureDevOps.OrganizationURL, "project", cfg.AzureDevOps.Project)
	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	azdoClient, err := azdo.NewClient(ctx, azdo.Config{
		OrganizationURL: cfg.AzureDevOps.OrganizationURL,
		Project:         cfg.AzureDevOps.Project,
		PAT:             cfg.AzureDevOps.PAT,
		Timeout:         cfg.AzureDevOps.Timeout,
	}, slog.Default())
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to azure devops", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "azure devops connected")

	firstSeen, closeLedger, err := setupLedger(ctx, cfg.Dedup)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up dedup ledger", "error", err)
		os.Exit(1)
	}
	defer closeLedger()

	services := service.NewServices(service.ServicesConfig{
		AzureDevOps:           azdoClient,
		Ledger:                firstSeen,
		EarlyCompletionWindow: cfg.Dedup.Window,
		Logger:                slog.Default(),
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Webhook.Enabled() {
		slog.InfoContext(ctx, "webhook basic auth enabled", "username", cfg.Webhook.Username)
	} else {
		slog.WarnContext(ctx, "webhook basic auth disabled, accepting unauthenticated notifications")
	}

	router := setupRouter(cfg, services)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupLedger(ctx context.Context, cfg config.DedupConfig) (ledger.Ledger, func(), error) {
	switch cfg.Backend {
	case config.DedupBackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		slog.InfoContext(ctx, "redis connected", "key_prefix", cfg.KeyPrefix, "ttl", cfg.TTL)
		closeFn := func() {
			if err := client.Close(); err != nil {
				slog.Error("redis close error", "error", err)
			}
		}
		return ledger.NewRedisLedger(client, ledger.RedisConfig{KeyPrefix: cfg.KeyPrefix, TTL: cfg.TTL}), closeFn, nil
	default:
		slog.InfoContext(ctx, "using in-memory dedup ledger", "max_entries", cfg.MaxEntries, "ttl", cfg.TTL)
		return ledger.NewMemoryLedger(ledger.MemoryConfig{MaxEntries: cfg.MaxEntries, TTL: cfg.TTL}), func() {}, nil
	}
}

func setupRouter(cfg config.Config, services *service.Services) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		WebhookUsername: cfg.Webhook.Username,
		WebhookPassword: cfg.Webhook.Password,
	})

	return router
}

const banner = `
 ___  ___  ___ _   _ _ __   ___
| _ \| _ \/ __| | | | '_ \ / __|
|  _/|   /\__ \ |_| | | | | (__
|_|  |_|_\|___/\__, |_| |_|\___|
               |___/
`
