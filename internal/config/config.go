// Package config builds the process-wide configuration once at startup.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tripfeed/tripfeed/internal/transit"
)

// Configuration keys.
const (
	KeyPort           = "APP_PORT"
	KeyEnv            = "APP_ENV"
	KeyOTelEnabled    = "OTEL_ENABLED"
	KeyOTLPEndpoint   = "OTEL_EXPORTER_OTLP_ENDPOINT"
	KeyRequireTLS     = "REQUIRE_TLS"
	KeyAuthScheme     = "UPSTREAM_AUTH_SCHEME"
	KeyAPIKey         = "UPSTREAM_API_KEY"
	KeyDevID          = "UPSTREAM_DEV_ID"
	KeyHeader         = "UPSTREAM_HEADER"
	KeyFallbackHeader = "UPSTREAM_FALLBACK_HEADER"
	KeyBaseURL        = "UPSTREAM_BASE_URL"
	KeyPathTemplate   = "UPSTREAM_PATH_TEMPLATE"
	KeyTimeout        = "UPSTREAM_TIMEOUT"
	KeyPreviewBytes   = "UPSTREAM_PREVIEW_BYTES"
	KeyMaxBodyBytes   = "UPSTREAM_MAX_BODY_BYTES"
	KeyCircuitBreaker = "UPSTREAM_CIRCUIT_BREAKER"

	// KeySegmentPrefix is followed by the upper-cased mode, e.g. FEED_SEGMENT_TRAM.
	KeySegmentPrefix = "FEED_SEGMENT_"
)

// Authentication schemes.
const (
	SchemeHeader = "header"
	SchemeHMAC   = "hmac"
)

// SegmentPlaceholder is replaced by the feed segment in PathTemplate.
const SegmentPlaceholder = "{segment}"

// Defaults for the Open Data API (header scheme).
const (
	DefaultBaseURL        = "https://api.opendata.transport.vic.gov.au/opendata/public-transport/gtfs/realtime/v1"
	DefaultPathTemplate   = "/" + SegmentPlaceholder + "/trip-updates"
	DefaultHeader         = "KeyId"
	DefaultFallbackHeader = "Ocp-Apim-Subscription-Key"
)

// Defaults for the timetable API (hmac scheme).
const (
	DefaultHMACBaseURL      = "https://timetableapi.ptv.vic.gov.au"
	DefaultHMACPathTemplate = "/v3/gtfs/trip_updates?route_types=" + SegmentPlaceholder
)

// Shared upstream defaults.
const (
	DefaultTimeout      = 15 * time.Second
	DefaultPreviewBytes = 400
	DefaultMaxBodyBytes = 32 << 20
)

// Config holds the read-only configuration for one process.
type Config struct {
	Port         string `validate:"required,numeric"`
	Environment  string `validate:"required"`
	OTelEnabled  bool
	OTLPEndpoint string
	RequireTLS   bool

	Upstream UpstreamConfig

	// Source is kept so credentials are read fresh on every request.
	Source Source `validate:"-"`
}

// UpstreamConfig describes the upstream feed provider.
type UpstreamConfig struct {
	AuthScheme     string `validate:"oneof=header hmac"`
	Header         string `validate:"required_if=AuthScheme header"`
	FallbackHeader string
	BaseURL        string        `validate:"required,url"`
	PathTemplate   string        `validate:"required,startswith=/,contains={segment}"`
	Timeout        time.Duration `validate:"gt=0"`
	PreviewBytes   int           `validate:"gt=0"`
	MaxBodyBytes   int64         `validate:"gt=0"`
	CircuitBreaker bool

	Segments transit.SegmentMap
}

// Load reads the configuration from src, applies defaults and validates it.
func Load(src Source) (Config, error) {
	scheme := strings.ToLower(getOrDefault(src, KeyAuthScheme, SchemeHeader))

	baseURL, pathTemplate, segments := DefaultBaseURL, DefaultPathTemplate, transit.DefaultSegments()
	if scheme == SchemeHMAC {
		baseURL, pathTemplate, segments = DefaultHMACBaseURL, DefaultHMACPathTemplate, transit.RouteTypeSegments()
	}

	for _, m := range transit.Modes {
		if v, ok := src.Lookup(KeySegmentPrefix + strings.ToUpper(m.String())); ok && v != "" {
			segments[m] = v
		}
	}
	segmentMap, err := transit.NewSegmentMap(segments)
	if err != nil {
		return Config{}, fmt.Errorf("feed segments: %w", err)
	}

	timeout, err := time.ParseDuration(getOrDefault(src, KeyTimeout, DefaultTimeout.String()))
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", KeyTimeout, err)
	}
	preview, err := strconv.Atoi(getOrDefault(src, KeyPreviewBytes, strconv.Itoa(DefaultPreviewBytes)))
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", KeyPreviewBytes, err)
	}
	maxBody, err := strconv.ParseInt(getOrDefault(src, KeyMaxBodyBytes, strconv.Itoa(DefaultMaxBodyBytes)), 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", KeyMaxBodyBytes, err)
	}

	fallback := DefaultFallbackHeader
	if v, ok := src.Lookup(KeyFallbackHeader); ok {
		// An explicitly empty value disables the fallback attempt.
		fallback = v
	}

	cfg := Config{
		Port:         getOrDefault(src, KeyPort, "8080"),
		Environment:  getOrDefault(src, KeyEnv, "development"),
		OTelEnabled:  getOrDefault(src, KeyOTelEnabled, "false") == "true",
		OTLPEndpoint: getOrDefault(src, KeyOTLPEndpoint, "localhost:4317"),
		RequireTLS:   getOrDefault(src, KeyRequireTLS, "false") == "true",
		Upstream: UpstreamConfig{
			AuthScheme:     scheme,
			Header:         getOrDefault(src, KeyHeader, DefaultHeader),
			FallbackHeader: fallback,
			BaseURL:        strings.TrimRight(getOrDefault(src, KeyBaseURL, baseURL), "/"),
			PathTemplate:   getOrDefault(src, KeyPathTemplate, pathTemplate),
			Timeout:        timeout,
			PreviewBytes:   preview,
			MaxBodyBytes:   maxBody,
			CircuitBreaker: getOrDefault(src, KeyCircuitBreaker, "false") == "true",
			Segments:       segmentMap,
		},
		Source: src,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Source == nil {
		return errors.New("invalid configuration: no source")
	}
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getOrDefault(src Source, key, defaultValue string) string {
	if v, ok := src.Lookup(key); ok && v != "" {
		return v
	}
	return defaultValue
}
