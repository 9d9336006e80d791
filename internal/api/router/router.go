// Package router assembles the HTTP surface of the booking proxy.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/howstean/checkfront-widget/internal/availability"
	"github.com/howstean/checkfront-widget/internal/booking"
	httpmiddleware "github.com/howstean/checkfront-widget/internal/http/middleware"
	"github.com/howstean/checkfront-widget/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AvailabilityHandler *availability.Handler
	BookingHandler      *booking.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// Nonce auth for the widget endpoints. Empty NonceSecret leaves the
	// endpoints open (local development).
	NonceSecret string
	NonceTTL    time.Duration
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health checks, metrics)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/checkfront/v1", func(api chi.Router) {
		// Nonce issuance stays open; the proxy endpoints require one.
		if cfg.NonceSecret != "" {
			api.Get("/nonce", httpmiddleware.NonceHandler(cfg.NonceSecret, cfg.NonceTTL))
		}
		api.Group(func(widget chi.Router) {
			if cfg.NonceSecret != "" {
				widget.Use(httpmiddleware.RequireNonce(cfg.NonceSecret))
			}
			widget.Get("/item-rated", cfg.AvailabilityHandler.ItemRated)
			widget.Post("/create-booking", cfg.BookingHandler.CreateBooking)
		})
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
