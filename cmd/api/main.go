package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/heartvoice/heartvoice/internal/api"
	"github.com/heartvoice/heartvoice/internal/audit"
	"github.com/heartvoice/heartvoice/internal/auth"
	"github.com/heartvoice/heartvoice/internal/chat"
	"github.com/heartvoice/heartvoice/internal/config"
	"github.com/heartvoice/heartvoice/internal/database"
	"github.com/heartvoice/heartvoice/internal/events"
	"github.com/heartvoice/heartvoice/internal/memory"
	"github.com/heartvoice/heartvoice/internal/message"
	"github.com/heartvoice/heartvoice/internal/middleware"
	iredis "github.com/heartvoice/heartvoice/internal/redis"
	"github.com/heartvoice/heartvoice/internal/server"
	"github.com/heartvoice/heartvoice/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	ctx := context.Background()

	// PostgreSQL
	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS event bus (optional)
	var eventsClient *events.Client
	var auditPublisher chat.AuditPublisher
	if cfg.NATS.Enabled {
		eventsClient, err = events.NewClient(ctx, cfg.NATS.URL)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		auditPublisher = events.NewPublisher(eventsClient.JetStream())
	}

	// Auth
	jwtManager := auth.NewJWTManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authSvc := auth.NewService(jwtManager, redisClient)
	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo)
	authHandler := auth.NewHandler(authSvc, userSvc)
	userHandler := users.NewHandler(userSvc, auth.HashPassword, auth.ComparePassword)

	// Memories
	memoryRepo := memory.NewRepository(pool)
	memorySvc := memory.NewService(memoryRepo)
	memoryHandler := memory.NewHandler(memorySvc)

	// Conversation engine
	messageRepo := message.NewRepository(pool)
	contexts := chat.NewRedisContextStore(redisClient, cfg.Chat.ContextTTL)
	orchestrator := chat.NewOrchestrator(
		chat.NewRuleClassifier(),
		chat.NewCatalog(),
		contexts,
		chat.NewRecorder(messageRepo),
		memorySvc,
		userSvc,
		auditPublisher,
	)
	chatHandler := chat.NewHandler(orchestrator, contexts, messageRepo, cfg.Chat.HistoryLimit)

	// Audit trail
	auditRepo := audit.NewRepository(pool)
	auditHandler := audit.NewHandler(auditRepo)

	if eventsClient != nil {
		consumer := audit.NewConsumer(auditRepo, events.NewConsumerManager(eventsClient.JetStream()))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("audit consumer stopped", "error", err)
			}
		}()
	}

	rateLimiter := middleware.NewRateLimiter(redisClient, cfg.RateLimit.AuthMaxRequests, cfg.RateLimit.AuthWindowSec)

	// Router
	router := api.NewRouter(pool, eventsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		AuthRateLimiter:    rateLimiter.Middleware,
	}, api.HandlerSet{
		Register: authHandler.Register,
		Login:    authHandler.Login,
		Refresh:  authHandler.Refresh,
		Logout:   authHandler.Logout,

		GetProfile:     userHandler.GetProfile,
		UpdateName:     userHandler.UpdateName,
		UpdateAvatar:   userHandler.UpdateAvatar,
		UpdatePassword: userHandler.UpdatePassword,

		ChatSend:         chatHandler.Send,
		ChatHistory:      chatHandler.History,
		ChatContext:      chatHandler.Context,
		ChatClearContext: chatHandler.ClearContext,

		ListMemories:   memoryHandler.List,
		CreateMemory:   memoryHandler.Create,
		GetMemory:      memoryHandler.Get,
		UpdateMemory:   memoryHandler.Update,
		DeleteMemory:   memoryHandler.Delete,
		SearchMemories: memoryHandler.Search,

		ListAuditLogs: auditHandler.List,

		AuthMiddleware: auth.Middleware(authSvc),
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
