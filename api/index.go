// Package handler is the serverless entrypoint. Every /api/* path is
// rewritten here and dispatched by the shared router.
package handler

import (
	"net/http"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tripfeed/tripfeed/internal/api/middleware"
	"github.com/tripfeed/tripfeed/internal/api/models"
	"github.com/tripfeed/tripfeed/internal/app"
	"github.com/tripfeed/tripfeed/internal/config"
	"github.com/tripfeed/tripfeed/internal/telemetry"
)

var (
	once    sync.Once
	router  http.Handler
	initErr error
)

func setup() {
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", telemetry.ServiceName).
		Str("runtime", "serverless").
		Logger()

	cfg, err := config.Load(config.EnvSource{})
	if err != nil {
		initErr = err
		log.Error().Err(err).Msg("invalid configuration")
		return
	}

	a, err := app.New(cfg, app.Options{Version: "serverless", Logger: log})
	if err != nil {
		initErr = err
		log.Error().Err(err).Msg("failed to assemble app")
		return
	}
	router = a.Router
}

// Handler serves one request. Configuration is loaded once per instance;
// credentials are still read on every request.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(setup)

	if initErr != nil {
		middleware.CORS(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			models.NewInternalError("", "service is misconfigured").Write(w)
		})).ServeHTTP(w, r)
		return
	}
	router.ServeHTTP(w, r)
}
