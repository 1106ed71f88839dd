// Package app assembles the trip-updates pipeline and HTTP router from a
// loaded configuration. The server, the serverless entrypoint and the CLI
// share it.
package app

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/tripfeed/tripfeed/internal/api"
	"github.com/tripfeed/tripfeed/internal/api/middleware"
	"github.com/tripfeed/tripfeed/internal/auth"
	"github.com/tripfeed/tripfeed/internal/config"
	"github.com/tripfeed/tripfeed/internal/provider/resilience"
	"github.com/tripfeed/tripfeed/internal/telemetry"
	"github.com/tripfeed/tripfeed/internal/transit/upstream"
	"github.com/tripfeed/tripfeed/internal/tripupdates"
)

// Options tunes how the app is assembled.
type Options struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger

	// Metrics enables the HTTP and provider instruments.
	Metrics bool

	// Transport overrides the upstream round tripper (tests).
	Transport http.RoundTripper
}

// App is an assembled tripfeed instance.
type App struct {
	Config   config.Config
	Registry *resilience.Registry
	Strategy auth.Strategy
	Service  *tripupdates.Service
	Router   *chi.Mux
}

// New wires the pipeline for cfg. It performs no network I/O.
func New(cfg config.Config, opts Options) (*App, error) {
	strategy, err := auth.NewStrategy(cfg.Upstream, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("auth strategy: %w", err)
	}

	registry := resilience.NewRegistry()
	log := opts.Logger

	clientCfg := resilience.ClientConfig{
		Name:      upstream.ProviderName,
		Timeout:   cfg.Upstream.Timeout,
		Transport: opts.Transport,
		Registry:  registry,
	}
	if cfg.Upstream.CircuitBreaker {
		cb := resilience.DefaultCircuitBreakerConfig(upstream.ProviderName)
		cb.OnStateChange = func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		}
		clientCfg.CircuitBreaker = &cb
	}

	var (
		providerMetrics *telemetry.ProviderMetrics
		httpMetrics     *middleware.Metrics
	)
	if opts.Metrics {
		if providerMetrics, err = telemetry.NewProviderMetrics(); err != nil {
			return nil, fmt.Errorf("provider metrics: %w", err)
		}
		if httpMetrics, err = middleware.NewMetrics(); err != nil {
			return nil, fmt.Errorf("http metrics: %w", err)
		}
	}

	fetcher := upstream.NewClient(upstream.ClientConfig{
		HTTPClient:   resilience.NewClient(clientCfg),
		Registry:     registry,
		Metrics:      providerMetrics,
		Timeout:      cfg.Upstream.Timeout,
		PreviewBytes: cfg.Upstream.PreviewBytes,
		MaxBodyBytes: cfg.Upstream.MaxBodyBytes,
		Logger:       log,
	})

	service := tripupdates.NewService(tripupdates.Config{
		Segments: cfg.Upstream.Segments,
		Endpoint: upstream.Endpoint{BaseURL: cfg.Upstream.BaseURL, PathTemplate: cfg.Upstream.PathTemplate},
		Strategy: strategy,
		Fetcher:  fetcher,
		Logger:   log,
	})

	router := api.NewRouter(api.RouterConfig{
		Version:     opts.Version,
		BuildTime:   opts.BuildTime,
		Logger:      log,
		ServiceName: telemetry.ServiceName,
		Metrics:     httpMetrics,
		RequireTLS:  cfg.RequireTLS,
		TripUpdates: service,
		Registry:    registry,
		Segments:    cfg.Upstream.Segments,
	})

	return &App{
		Config:   cfg,
		Registry: registry,
		Strategy: strategy,
		Service:  service,
		Router:   router,
	}, nil
}
