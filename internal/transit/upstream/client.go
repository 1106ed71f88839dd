// Package upstream fetches the raw GTFS-Realtime trip-updates feed.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tripfeed/tripfeed/internal/auth"
	"github.com/tripfeed/tripfeed/internal/config"
	"github.com/tripfeed/tripfeed/internal/provider/resilience"
	"github.com/tripfeed/tripfeed/internal/telemetry"
	"github.com/tripfeed/tripfeed/internal/transit"
)

// ProviderName identifies the upstream feed in the registry and metrics.
const ProviderName = "gtfs-realtime"

// maxAttempts caps a plan at the primary attempt and one fallback.
const maxAttempts = 2

// Endpoint renders the upstream URL for a feed segment.
type Endpoint struct {
	BaseURL      string
	PathTemplate string
}

// URL substitutes segment into the path template.
func (e Endpoint) URL(segment string) string {
	return strings.TrimRight(e.BaseURL, "/") +
		strings.ReplaceAll(e.PathTemplate, config.SegmentPlaceholder, url.PathEscape(segment))
}

// Response is a successful upstream fetch.
type Response struct {
	Body        []byte
	ContentType string
	StatusCode  int
	// Attempts is 2 when the fallback header was used.
	Attempts int
}

// ClientConfig holds configuration for the upstream client.
type ClientConfig struct {
	// HTTPClient is the client to use (optional).
	// If nil, uses a resilience client with defaults.
	HTTPClient *resilience.Client

	// Registry receives success and failure records (optional).
	Registry *resilience.Registry

	// Metrics records fetch duration and size (optional).
	Metrics *telemetry.ProviderMetrics

	// Tracer is used for the fetch span (optional).
	Tracer trace.Tracer

	// Timeout bounds each attempt including the body read.
	// Default: 15 seconds
	Timeout time.Duration

	// PreviewBytes bounds the body excerpt kept from a non-2xx response.
	// Default: 400
	PreviewBytes int

	// MaxBodyBytes caps a successful body.
	// Default: 32 MiB
	MaxBodyBytes int64

	Logger zerolog.Logger
}

// Client fetches the feed with the attempts of an auth.Plan.
type Client struct {
	httpClient   *resilience.Client
	registry     *resilience.Registry
	metrics      *telemetry.ProviderMetrics
	tracer       trace.Tracer
	timeout      time.Duration
	previewBytes int
	maxBodyBytes int64
	logger       zerolog.Logger
}

// NewClient creates a new upstream client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = telemetry.Tracer(telemetry.InstrumentationName)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	previewBytes := cfg.PreviewBytes
	if previewBytes <= 0 {
		previewBytes = config.DefaultPreviewBytes
	}
	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = config.DefaultMaxBodyBytes
	}

	return &Client{
		httpClient:   httpClient,
		registry:     cfg.Registry,
		metrics:      cfg.Metrics,
		tracer:       tracer,
		timeout:      timeout,
		previewBytes: previewBytes,
		maxBodyBytes: maxBodyBytes,
		logger:       cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.httpClient.Name()
}

// Fetch runs the plan. The second attempt is only made when the first is
// answered with 401 or 403. Failures are *transit.UpstreamError.
func (c *Client) Fetch(ctx context.Context, plan *auth.Plan) (*Response, error) {
	if plan == nil || len(plan.Attempts) == 0 {
		return nil, errors.New("upstream: plan has no attempts")
	}

	ctx, span := c.tracer.Start(ctx, "upstream.Fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", http.MethodGet),
			attribute.String("http.url", plan.RedactedURL),
			attribute.String("auth.scheme", plan.Scheme),
		),
	)
	defer span.End()

	start := time.Now()
	resp, attempts, err := c.run(ctx, plan)

	var size int64
	if resp != nil {
		size = int64(len(resp.Body))
	}
	c.metrics.RecordRequest(c.Name(), plan.Scheme, attempts, size, time.Since(start), err)
	span.SetAttributes(attribute.Int("upstream.attempts", attempts))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if c.registry != nil {
			c.registry.RecordFailure(c.Name(), err)
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("http.status_code", resp.StatusCode),
		attribute.Int64("http.response_content_length", size),
	)
	if c.registry != nil {
		c.registry.RecordSuccess(c.Name())
	}
	return resp, nil
}

func (c *Client) run(ctx context.Context, plan *auth.Plan) (*Response, int, error) {
	attempts := plan.Attempts
	if len(attempts) > maxAttempts {
		attempts = attempts[:maxAttempts]
	}

	var rejected *transit.UpstreamError
	for i, a := range attempts {
		if i > 0 {
			c.logger.Debug().
				Int("status", rejected.StatusCode).
				Str("fallback", a.Label).
				Msg("primary credential rejected, trying fallback")
		}

		resp, err := c.do(ctx, plan, a)
		if err == nil {
			resp.Attempts = i + 1
			return resp, i + 1, nil
		}

		var ue *transit.UpstreamError
		if !errors.As(err, &ue) || !isAuthRejection(ue.StatusCode) {
			return nil, i + 1, err
		}
		rejected = ue
	}

	rejected.Hint = authHint(plan, attempts)
	return nil, len(attempts), rejected
}

// do performs one attempt under its own deadline.
func (c *Client) do(ctx context.Context, plan *auth.Plan, a auth.Attempt) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for name, values := range a.Header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("Accept", "*/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(plan, err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, int64(c.previewBytes)))
		return nil, &transit.UpstreamError{
			StatusCode:  resp.StatusCode,
			ContentType: contentType,
			BodyPreview: strings.ToValidUTF8(string(preview), ""),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, transportError(plan, err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, &transit.UpstreamError{
			ContentType: contentType,
			Hint:        fmt.Sprintf("feed body exceeds %d bytes; raise %s", c.maxBodyBytes, config.KeyMaxBodyBytes),
			Err:         errors.New("upstream body too large"),
		}
	}

	return &Response{
		Body:        body,
		ContentType: contentType,
		StatusCode:  resp.StatusCode,
	}, nil
}

// transportError classifies a failure where no status was received. The
// request URL is replaced by the redacted one so signatures never leak.
func transportError(plan *auth.Plan, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = fmt.Errorf("%s %s: %w", urlErr.Op, plan.RedactedURL, urlErr.Err)
	}

	switch {
	case resilience.IsTimeout(err):
		return &transit.UpstreamError{Timeout: true, Err: err}
	case errors.Is(err, resilience.ErrCircuitOpen):
		return &transit.UpstreamError{
			Hint: "upstream circuit breaker is open after repeated failures",
			Err:  err,
		}
	default:
		return &transit.UpstreamError{Err: err}
	}
}

func isAuthRejection(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func authHint(plan *auth.Plan, attempts []auth.Attempt) string {
	if plan.Scheme == config.SchemeHMAC {
		return fmt.Sprintf("signature rejected; check %s and %s", config.KeyAPIKey, config.KeyDevID)
	}
	labels := make([]string, 0, len(attempts))
	for _, a := range attempts {
		labels = append(labels, a.Label)
	}
	return fmt.Sprintf("credential rejected with header %s; set %s to the header name the provider expects",
		strings.Join(labels, " and "), config.KeyHeader)
}
