// Package tripupdates runs the per-request pipeline: credential, fetch,
// decode and normalize.
package tripupdates

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tripfeed/tripfeed/internal/auth"
	"github.com/tripfeed/tripfeed/internal/gtfsrt"
	"github.com/tripfeed/tripfeed/internal/transit"
	"github.com/tripfeed/tripfeed/internal/transit/upstream"
)

// Fetcher performs the upstream call for a prepared plan.
type Fetcher interface {
	Fetch(ctx context.Context, plan *auth.Plan) (*upstream.Response, error)
}

// Config holds the collaborators of a Service.
type Config struct {
	Segments transit.SegmentMap
	Endpoint upstream.Endpoint
	Strategy auth.Strategy
	Fetcher  Fetcher

	// Decoder defaults to gtfsrt.ProtoDecoder.
	Decoder gtfsrt.Decoder

	Logger zerolog.Logger
}

// Result is a successfully normalized feed.
type Result struct {
	Mode        transit.Mode
	Segment     string
	Feed        gtfsrt.Feed
	AuthScheme  string
	RedactedURL string
	Attempts    int
}

// Service produces normalized trip updates for a mode. It keeps no state
// between calls.
type Service struct {
	segments transit.SegmentMap
	endpoint upstream.Endpoint
	strategy auth.Strategy
	fetcher  Fetcher
	decoder  gtfsrt.Decoder
	logger   zerolog.Logger
}

// NewService creates a new trip-updates service.
func NewService(cfg Config) *Service {
	decoder := cfg.Decoder
	if decoder == nil {
		decoder = gtfsrt.ProtoDecoder{}
	}
	return &Service{
		segments: cfg.Segments,
		endpoint: cfg.Endpoint,
		strategy: cfg.Strategy,
		fetcher:  cfg.Fetcher,
		decoder:  decoder,
		logger:   cfg.Logger,
	}
}

// Scheme returns the name of the configured auth strategy.
func (s *Service) Scheme() string {
	return s.strategy.Name()
}

// Plan resolves the credential and builds the upstream attempts for mode
// without performing any network call.
func (s *Service) Plan(mode transit.Mode) (*auth.Plan, string, error) {
	segment := s.segments.Segment(mode)
	if segment == "" {
		return nil, "", fmt.Errorf("%w: %q", transit.ErrInvalidMode, mode)
	}

	plan, err := s.strategy.Prepare(s.endpoint.URL(segment))
	if err != nil {
		return nil, segment, fmt.Errorf("preparing %s credential: %w", s.strategy.Name(), err)
	}
	return plan, segment, nil
}

// TripUpdates fetches and normalizes the feed for mode.
func (s *Service) TripUpdates(ctx context.Context, mode transit.Mode) (*Result, error) {
	plan, segment, err := s.Plan(mode)
	if err != nil {
		if errors.Is(err, auth.ErrMissingCredential) {
			s.logger.Error().Err(err).Str("mode", mode.String()).Msg("upstream credential not configured")
		}
		return nil, err
	}

	log := s.logger.With().
		Str("mode", mode.String()).
		Str("segment", segment).
		Str("auth_scheme", plan.Scheme).
		Logger()

	resp, err := s.fetcher.Fetch(ctx, plan)
	if err != nil {
		var ue *transit.UpstreamError
		if errors.As(err, &ue) {
			log.Warn().
				Int("upstream_status", ue.StatusCode).
				Bool("timeout", ue.Timeout).
				Str("content_type", ue.ContentType).
				Err(err).
				Msg("upstream fetch failed")
		} else {
			log.Warn().Err(err).Msg("upstream fetch failed")
		}
		return nil, fmt.Errorf("fetching %s feed: %w", segment, err)
	}

	fm, err := s.decoder.Decode(resp.Body, resp.ContentType)
	if err != nil {
		log.Warn().
			Str("content_type", resp.ContentType).
			Int("byte_length", len(resp.Body)).
			Err(err).
			Msg("feed decode failed")
		return nil, fmt.Errorf("decoding %s feed: %w", segment, err)
	}

	feed := gtfsrt.Normalize(fm)

	log.Debug().
		Int("entities", len(feed.Entities)).
		Int("attempts", resp.Attempts).
		Msg("feed normalized")

	return &Result{
		Mode:        mode,
		Segment:     segment,
		Feed:        feed,
		AuthScheme:  plan.Scheme,
		RedactedURL: plan.RedactedURL,
		Attempts:    resp.Attempts,
	}, nil
}
