package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/howstean/checkfront-widget/internal/api/router"
	"github.com/howstean/checkfront-widget/internal/availability"
	"github.com/howstean/checkfront-widget/internal/booking"
	"github.com/howstean/checkfront-widget/internal/checkfront"
	appconfig "github.com/howstean/checkfront-widget/internal/config"
	"github.com/howstean/checkfront-widget/internal/observability/metrics"
	"github.com/howstean/checkfront-widget/pkg/logging"
)

func main() {
	// Load .env file if present; real deployments set the environment.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting checkfront-widget API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)
	if !cfg.CheckfrontConfigured() {
		logger.Warn("Checkfront credentials missing; proxy endpoints will answer 503")
	}
	if cfg.NonceSecret == "" {
		logger.Warn("WIDGET_NONCE_SECRET unset; widget endpoints are unauthenticated")
	}

	// Metrics registry with the standard process collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	upstreamMetrics := metrics.NewUpstreamMetrics(registry)

	// Upstream client and services
	client := checkfront.NewClient(cfg.CheckfrontHost, cfg.CheckfrontAPIKey, cfg.CheckfrontAPISecret, logger).
		WithMetrics(upstreamMetrics).
		WithTimeout(cfg.UpstreamTimeout)

	availabilityHandler := availability.NewHandler(availability.NewService(client, logger), logger)
	bookingHandler := booking.NewHandler(booking.NewService(client, logger), logger)

	// Setup router
	routerCfg := &router.Config{
		Logger:              logger,
		AvailabilityHandler: availabilityHandler,
		BookingHandler:      bookingHandler,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		NonceSecret:         cfg.NonceSecret,
		NonceTTL:            cfg.NonceTTL,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
