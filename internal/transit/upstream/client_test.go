package upstream_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tripfeed/tripfeed/internal/auth"
	"github.com/tripfeed/tripfeed/internal/config"
	"github.com/tripfeed/tripfeed/internal/provider/resilience"
	"github.com/tripfeed/tripfeed/internal/transit"
	"github.com/tripfeed/tripfeed/internal/transit/upstream"
)

func headerPlan(t *testing.T, target string, fallback string) *auth.Plan {
	t.Helper()
	s := &auth.HeaderStrategy{
		Source:         config.MapSource{config.KeyAPIKey: "k-123"},
		Header:         "KeyId",
		FallbackHeader: fallback,
	}
	plan, err := s.Prepare(target)
	require.NoError(t, err)
	return plan
}

func newClient(cfg upstream.ClientConfig) *upstream.Client {
	cfg.Logger = zerolog.Nop()
	return upstream.NewClient(cfg)
}

func TestEndpoint_URL(t *testing.T) {
	e := upstream.Endpoint{BaseURL: "https://example.com/gtfs/realtime/v1/", PathTemplate: "/{segment}/trip-updates"}
	assert.Equal(t, "https://example.com/gtfs/realtime/v1/metro/trip-updates", e.URL("metro"))

	q := upstream.Endpoint{BaseURL: "https://example.com", PathTemplate: "/v3/gtfs/trip_updates?route_types={segment}"}
	assert.Equal(t, "https://example.com/v3/gtfs/trip_updates?route_types=0", q.URL("0"))
}

func TestClient_Fetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/metro/trip-updates", r.URL.Path)
		assert.Equal(t, "k-123", r.Header.Get("KeyId"))
		assert.Equal(t, "*/*", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte{0x0a, 0x03})
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	httpClient := resilience.NewClient(resilience.ClientConfig{Name: upstream.ProviderName, Registry: registry})
	client := newClient(upstream.ClientConfig{HTTPClient: httpClient, Registry: registry})

	resp, err := client.Fetch(context.Background(), headerPlan(t, server.URL+"/metro/trip-updates", ""))
	require.NoError(t, err)

	assert.Equal(t, []byte{0x0a, 0x03}, resp.Body)
	assert.Equal(t, "application/octet-stream", resp.ContentType)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, resp.Attempts)

	health := registry.GetHealth(upstream.ProviderName)
	require.NotNil(t, health)
	assert.Equal(t, uint64(1), health.Successes)
}

func TestClient_Fetch_FallbackOnAuthRejection(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				if r.Header.Get("Ocp-Apim-Subscription-Key") == "k-123" {
					_, _ = w.Write([]byte("feed"))
					return
				}
				w.WriteHeader(status)
			}))
			defer server.Close()

			client := newClient(upstream.ClientConfig{})
			resp, err := client.Fetch(context.Background(), headerPlan(t, server.URL, "Ocp-Apim-Subscription-Key"))
			require.NoError(t, err)

			assert.Equal(t, []byte("feed"), resp.Body)
			assert.Equal(t, 2, resp.Attempts)
			assert.Equal(t, int32(2), calls.Load())
		})
	}
}

func TestClient_Fetch_FallbackAlsoRejected(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Access denied due to invalid subscription key"}`))
	}))
	defer server.Close()

	client := newClient(upstream.ClientConfig{})
	_, err := client.Fetch(context.Background(), headerPlan(t, server.URL, "Ocp-Apim-Subscription-Key"))
	require.Error(t, err)

	var ue *transit.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusUnauthorized, ue.StatusCode)
	assert.Equal(t, "application/json", ue.ContentType)
	assert.Contains(t, ue.BodyPreview, "invalid subscription key")
	assert.Contains(t, ue.Hint, config.KeyHeader)
	assert.Equal(t, int32(2), calls.Load(), "never more than one fallback")
}

func TestClient_Fetch_NoFallbackOnOtherStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(strings.Repeat("x", 1000)))
	}))
	defer server.Close()

	client := newClient(upstream.ClientConfig{PreviewBytes: 400})
	_, err := client.Fetch(context.Background(), headerPlan(t, server.URL, "Ocp-Apim-Subscription-Key"))

	var ue *transit.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusServiceUnavailable, ue.StatusCode)
	assert.Len(t, ue.BodyPreview, 400)
	assert.Empty(t, ue.Hint)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Fetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := newClient(upstream.ClientConfig{Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := client.Fetch(context.Background(), headerPlan(t, server.URL, ""))
	require.Error(t, err)

	assert.ErrorIs(t, err, transit.ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_Fetch_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	target := server.URL
	server.Close()

	client := newClient(upstream.ClientConfig{})
	_, err := client.Fetch(context.Background(), headerPlan(t, target, ""))

	var ue *transit.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Zero(t, ue.StatusCode)
	assert.False(t, ue.Timeout)
	assert.NotErrorIs(t, err, transit.ErrTimeout)
}

func TestClient_Fetch_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer server.Close()

	client := newClient(upstream.ClientConfig{MaxBodyBytes: 1024})
	_, err := client.Fetch(context.Background(), headerPlan(t, server.URL, ""))

	var ue *transit.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Zero(t, ue.StatusCode)
	assert.Contains(t, ue.Hint, config.KeyMaxBodyBytes)
}

func TestClient_Fetch_HMACDoesNotLeakSignature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3000000", r.URL.Query().Get("devid"))
		assert.Len(t, r.URL.Query().Get("signature"), 40)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	s := &auth.HMACStrategy{Source: config.MapSource{config.KeyAPIKey: "secret", config.KeyDevID: "3000000"}}
	plan, err := s.Prepare(server.URL + "/v3/gtfs/trip_updates?route_types=1")
	require.NoError(t, err)

	registry := resilience.NewRegistry()
	httpClient := resilience.NewClient(resilience.ClientConfig{Name: upstream.ProviderName, Registry: registry})
	client := newClient(upstream.ClientConfig{HTTPClient: httpClient, Registry: registry})

	_, err = client.Fetch(context.Background(), plan)

	var ue *transit.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusForbidden, ue.StatusCode)
	assert.Contains(t, ue.Hint, config.KeyDevID)
	assert.Equal(t, uint64(1), registry.GetHealth(upstream.ProviderName).Failures)
}

func TestClient_Fetch_EmptyPlan(t *testing.T) {
	client := newClient(upstream.ClientConfig{})

	_, err := client.Fetch(context.Background(), &auth.Plan{})
	assert.Error(t, err)
}

func TestClient_Fetch_RecordsSpan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("feed"))
	}))
	defer server.Close()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	client := newClient(upstream.ClientConfig{Tracer: tp.Tracer("test")})
	_, err := client.Fetch(context.Background(), headerPlan(t, server.URL, ""))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "upstream.Fetch", spans[0].Name())

	attrs := make(map[string]string)
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, server.URL, attrs["http.url"])
	assert.Equal(t, "header", attrs["auth.scheme"])
	assert.Equal(t, "1", attrs["upstream.attempts"])
}
