package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ProviderMetrics records upstream feed fetches.
type ProviderMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	attemptTotal    metric.Int64Counter
	bodySize        metric.Int64Histogram
}

// NewProviderMetrics creates the provider instruments on the global meter.
func NewProviderMetrics() (*ProviderMetrics, error) {
	return NewProviderMetricsWithMeter(otel.Meter(InstrumentationName))
}

// NewProviderMetricsWithMeter creates the provider instruments on meter.
func NewProviderMetricsWithMeter(meter metric.Meter) (*ProviderMetrics, error) {
	requestDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of upstream feed fetches in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Total number of upstream feed fetches"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	attemptTotal, err := meter.Int64Counter(
		"provider.attempt.total",
		metric.WithDescription("Upstream HTTP attempts including header fallbacks"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	bodySize, err := meter.Int64Histogram(
		"provider.response.size",
		metric.WithDescription("Size of upstream feed bodies in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		attemptTotal:    attemptTotal,
		bodySize:        bodySize,
	}, nil
}

// RecordRequest records one fetch. A nil receiver is a no-op.
func (m *ProviderMetrics) RecordRequest(provider, scheme string, attempts int, size int64, duration time.Duration, err error) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("auth.scheme", scheme),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Metrics outlive the request, so they are not tied to its context.
	ctx := context.Background()
	opts := metric.WithAttributes(attrs...)
	m.requestDuration.Record(ctx, duration.Seconds(), opts)
	m.requestTotal.Add(ctx, 1, opts)
	m.attemptTotal.Add(ctx, int64(attempts), opts)
	if err == nil {
		m.bodySize.Record(ctx, size, opts)
	}
}
