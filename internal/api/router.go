// Package api provides the HTTP API for tripfeed.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tripfeed/tripfeed/internal/api/handler"
	"github.com/tripfeed/tripfeed/internal/api/middleware"
	"github.com/tripfeed/tripfeed/internal/api/response"
	"github.com/tripfeed/tripfeed/internal/provider/resilience"
	"github.com/tripfeed/tripfeed/internal/transit"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	TripUpdates handler.TripUpdatesService
	Registry    *resilience.Registry
	Segments    transit.SegmentMap
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "tripfeed-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.CORS)                       // CORS on every response, 204 preflight
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement behind a proxy
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	r.NotFound(response.NotFound)
	r.MethodNotAllowed(response.MethodNotAllowed)

	tripUpdatesHandler := handler.NewTripUpdatesHandler(cfg.TripUpdates)
	echoHandler := handler.NewEchoHandler()
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, cfg.Segments)

	r.Route("/api", func(r chi.Router) {
		r.Get("/echo", echoHandler.Echo)

		r.Route("/gtfs", func(r chi.Router) {
			r.Get("/trip-updates", tripUpdatesHandler.GetTripUpdates)
			r.Get("/echo", echoHandler.Echo)
			r.Get("/{mode}/trip-updates", tripUpdatesHandler.GetTripUpdates)
			r.Get("/{mode}/echo", echoHandler.Echo)
		})
	})

	r.Route("/v1/ops", func(r chi.Router) {
		r.Get("/health", opsHandler.HealthCheck)
		r.Get("/status", opsHandler.SystemStatus)
	})

	return r
}
