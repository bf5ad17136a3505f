package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heartvoice/heartvoice/internal/database"
	"github.com/heartvoice/heartvoice/internal/events"
	mw "github.com/heartvoice/heartvoice/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Auth handlers
	Register http.HandlerFunc
	Login    http.HandlerFunc
	Refresh  http.HandlerFunc
	Logout   http.HandlerFunc

	// Profile handlers
	GetProfile     http.HandlerFunc
	UpdateName     http.HandlerFunc
	UpdateAvatar   http.HandlerFunc
	UpdatePassword http.HandlerFunc

	// Chat handlers
	ChatSend         http.HandlerFunc
	ChatHistory      http.HandlerFunc
	ChatContext      http.HandlerFunc
	ChatClearContext http.HandlerFunc

	// Memory handlers
	ListMemories   http.HandlerFunc
	CreateMemory   http.HandlerFunc
	GetMemory      http.HandlerFunc
	UpdateMemory   http.HandlerFunc
	DeleteMemory   http.HandlerFunc
	SearchMemories http.HandlerFunc

	// Audit handlers
	ListAuditLogs http.HandlerFunc

	// Auth middleware
	AuthMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	AuthRateLimiter    func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, eventsClient *events.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe, always 200 with no dependency checks.
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe checks the database and the event bus.
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"nats":     "healthy",
		}

		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if eventsClient != nil && !eventsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else if eventsClient == nil {
			health["nats"] = "not configured"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes, optionally rate-limited.
		r.Route("/auth", func(r chi.Router) {
			if cfg.AuthRateLimiter != nil {
				r.Use(cfg.AuthRateLimiter)
			}
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware)
				r.Post("/logout", h.Logout)
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", h.GetProfile)
				r.Put("/name", h.UpdateName)
				r.Put("/avatar", h.UpdateAvatar)
				r.Put("/password", h.UpdatePassword)
			})

			r.Route("/chat", func(r chi.Router) {
				r.Post("/send", h.ChatSend)
				r.Get("/history", h.ChatHistory)
				r.Get("/context", h.ChatContext)
				r.Post("/context/clear", h.ChatClearContext)
			})

			r.Route("/memories", func(r chi.Router) {
				r.Get("/", h.ListMemories)
				r.Post("/", h.CreateMemory)
				r.Post("/search", h.SearchMemories)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetMemory)
					r.Put("/", h.UpdateMemory)
					r.Delete("/", h.DeleteMemory)
				})
			})

			r.Get("/audit", h.ListAuditLogs)
		})
	})

	return r
}
