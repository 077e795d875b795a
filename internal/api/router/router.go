package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/scam-honeypot/internal/conversation"
	httpmiddleware "github.com/wolfman30/scam-honeypot/internal/http/middleware"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	APIKey              string
	AdminAuthSecret     string
	MetricsHandler      http.Handler
	RateLimitPerSec     float64
	RateLimitBurst      int
	RequestTimeout      time.Duration
	HealthChecks        map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	if cfg.ConversationHandler == nil {
		return r
	}

	r.Route("/api/v1/honeypot", func(api chi.Router) {
		if cfg.RateLimitPerSec > 0 {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSec, cfg.RateLimitBurst))
		}
		api.Use(httpmiddleware.APIKey(cfg.APIKey))
		if cfg.RequestTimeout > 0 {
			api.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		api.Post("/message", cfg.ConversationHandler.Message)
	})

	// Admin routes (protected by HMAC JWT)
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/conversations/{id}", cfg.ConversationHandler.Conversation)
		})
	}

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := map[string]string{"status": "ok"}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp[name] = err.Error()
				resp["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp[name] = "ok"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
