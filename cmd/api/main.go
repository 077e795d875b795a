package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/scam-honeypot/internal/api/router"
	"github.com/wolfman30/scam-honeypot/internal/app/bootstrap"
	appconfig "github.com/wolfman30/scam-honeypot/internal/config"
	"github.com/wolfman30/scam-honeypot/internal/conversation"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

func main() {
	// Load .env file when present
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting scam-honeypot API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"store", cfg.StoreBackend,
	)
	if cfg.APIKey == "" {
		logger.Warn("HONEYPOT_API_KEY is empty; message endpoint will reject every request")
	}

	metricsHandler, reg := setupMetrics()

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	honeypot, err := bootstrap.BuildHoneypot(initCtx, cfg, reg, logger)
	cancelInit()
	if err != nil {
		logger.Error("failed to wire honeypot", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := honeypot.Close(); err != nil {
			logger.Warn("failed to release resources", "error", err)
		}
	}()

	r := router.New(&router.Config{
		Logger:              logger.WithComponent("http"),
		ConversationHandler: conversation.NewHandler(honeypot.Service, logger.WithComponent("http")),
		APIKey:              cfg.APIKey,
		AdminAuthSecret:     cfg.AdminJWTSecret,
		MetricsHandler:      metricsHandler,
		RateLimitPerSec:     cfg.RateLimitPerSec,
		RateLimitBurst:      cfg.RateLimitBurst,
		RequestTimeout:      cfg.TurnTimeout,
		HealthChecks:        honeypot.HealthChecks,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.TurnTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// In-flight turns get the full turn budget to finish.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.TurnTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func setupMetrics() (http.Handler, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), reg
}
