package tripupdates_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripfeed/tripfeed/internal/auth"
	"github.com/tripfeed/tripfeed/internal/config"
	"github.com/tripfeed/tripfeed/internal/gtfsrt/gtfsrttest"
	"github.com/tripfeed/tripfeed/internal/transit"
	"github.com/tripfeed/tripfeed/internal/transit/upstream"
	"github.com/tripfeed/tripfeed/internal/tripupdates"
)

// mockFetcher records plans and returns a configurable response.
type mockFetcher struct {
	resp      *upstream.Response
	err       error
	lastPlan  *auth.Plan
	callCount atomic.Int32
}

func (m *mockFetcher) Fetch(_ context.Context, plan *auth.Plan) (*upstream.Response, error) {
	m.callCount.Add(1)
	m.lastPlan = plan
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func newService(t *testing.T, src config.Source, fetcher tripupdates.Fetcher) *tripupdates.Service {
	t.Helper()
	segments, err := transit.NewSegmentMap(transit.DefaultSegments())
	require.NoError(t, err)

	return tripupdates.NewService(tripupdates.Config{
		Segments: segments,
		Endpoint: upstream.Endpoint{BaseURL: config.DefaultBaseURL, PathTemplate: config.DefaultPathTemplate},
		Strategy: &auth.HeaderStrategy{Source: src, Header: "KeyId", FallbackHeader: "Ocp-Apim-Subscription-Key"},
		Fetcher:  fetcher,
		Logger:   zerolog.Nop(),
	})
}

func TestService_TripUpdates_Train(t *testing.T) {
	fetcher := &mockFetcher{resp: &upstream.Response{
		Body:        gtfsrttest.Marshal(t, gtfsrttest.SampleFeed()),
		ContentType: "application/octet-stream",
		StatusCode:  http.StatusOK,
		Attempts:    1,
	}}
	svc := newService(t, config.MapSource{config.KeyAPIKey: "k-123"}, fetcher)

	mode, err := transit.ParseMode("Train")
	require.NoError(t, err)

	result, err := svc.TripUpdates(context.Background(), mode)
	require.NoError(t, err)

	assert.Equal(t, transit.ModeTrain, result.Mode)
	assert.Equal(t, "metro", result.Segment)
	assert.Equal(t, "header", result.AuthScheme)
	assert.Equal(t, config.DefaultBaseURL+"/metro/trip-updates", result.RedactedURL)
	assert.Equal(t, int64(gtfsrttest.HeaderTimestamp), result.Feed.Header.Timestamp)

	require.Len(t, result.Feed.Entities, 2)
	first := result.Feed.Entities[0]
	require.NotNil(t, first.FirstStop)
	assert.Equal(t, "1120", *first.FirstStop.StopID)
	assert.Equal(t, int32(45), first.FirstStop.ArrivalDelay)
	assert.Equal(t, int32(0), first.FirstStop.DepartureDelay)
	assert.Nil(t, result.Feed.Entities[1].FirstStop)

	require.NotNil(t, fetcher.lastPlan)
	assert.Equal(t, config.DefaultBaseURL+"/metro/trip-updates", fetcher.lastPlan.Attempts[0].URL)
	assert.Equal(t, int32(1), fetcher.callCount.Load())
}

func TestService_TripUpdates_MissingCredential(t *testing.T) {
	fetcher := &mockFetcher{}
	svc := newService(t, config.MapSource{}, fetcher)

	_, err := svc.TripUpdates(context.Background(), transit.ModeTram)
	require.Error(t, err)

	assert.ErrorIs(t, err, auth.ErrMissingCredential)
	assert.Equal(t, int32(0), fetcher.callCount.Load(), "no outbound call without a credential")
}

func TestService_TripUpdates_DecodeFailure(t *testing.T) {
	body := []byte(`<?xml version="1.0"?><Error>Unauthorized</Error>`)
	fetcher := &mockFetcher{resp: &upstream.Response{Body: body, ContentType: "application/xml", StatusCode: http.StatusOK}}
	svc := newService(t, config.MapSource{config.KeyAPIKey: "k-123"}, fetcher)

	_, err := svc.TripUpdates(context.Background(), transit.ModeBus)
	require.Error(t, err)

	var de *transit.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "application/xml", de.ContentType)
	assert.Equal(t, len(body), de.ByteLength)
}

func TestService_TripUpdates_UpstreamError(t *testing.T) {
	upstreamErr := &transit.UpstreamError{StatusCode: http.StatusForbidden, BodyPreview: "denied"}
	fetcher := &mockFetcher{err: upstreamErr}
	svc := newService(t, config.MapSource{config.KeyAPIKey: "k-123"}, fetcher)

	_, err := svc.TripUpdates(context.Background(), transit.ModeBus)

	var ue *transit.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusForbidden, ue.StatusCode)
	assert.ErrorIs(t, err, transit.ErrUpstream)
}

func TestService_TripUpdates_Timeout(t *testing.T) {
	fetcher := &mockFetcher{err: &transit.UpstreamError{Timeout: true, Err: context.DeadlineExceeded}}
	svc := newService(t, config.MapSource{config.KeyAPIKey: "k-123"}, fetcher)

	_, err := svc.TripUpdates(context.Background(), transit.ModeTram)
	assert.ErrorIs(t, err, transit.ErrTimeout)
}

func TestService_TripUpdates_EmptyFeed(t *testing.T) {
	fetcher := &mockFetcher{resp: &upstream.Response{Body: gtfsrttest.Marshal(t, gtfsrttest.FeedWithEntities(0))}}
	svc := newService(t, config.MapSource{config.KeyAPIKey: "k-123"}, fetcher)

	result, err := svc.TripUpdates(context.Background(), transit.ModeTram)
	require.NoError(t, err)
	assert.NotNil(t, result.Feed.Entities)
	assert.Empty(t, result.Feed.Entities)
}

func TestService_Plan_UnknownMode(t *testing.T) {
	svc := newService(t, config.MapSource{config.KeyAPIKey: "k-123"}, &mockFetcher{})

	_, _, err := svc.Plan(transit.Mode("ferry"))
	assert.ErrorIs(t, err, transit.ErrInvalidMode)
}

func TestService_Plan_HMAC(t *testing.T) {
	segments, err := transit.NewSegmentMap(transit.RouteTypeSegments())
	require.NoError(t, err)

	svc := tripupdates.NewService(tripupdates.Config{
		Segments: segments,
		Endpoint: upstream.Endpoint{BaseURL: config.DefaultHMACBaseURL, PathTemplate: config.DefaultHMACPathTemplate},
		Strategy: &auth.HMACStrategy{Source: config.MapSource{config.KeyAPIKey: "secret", config.KeyDevID: "3000000"}},
		Fetcher:  &mockFetcher{err: errors.New("unused")},
		Logger:   zerolog.Nop(),
	})

	plan, segment, err := svc.Plan(transit.ModeTram)
	require.NoError(t, err)
	assert.Equal(t, "1", segment)
	assert.Equal(t, "hmac", svc.Scheme())
	assert.Equal(t,
		"https://timetableapi.ptv.vic.gov.au/v3/gtfs/trip_updates?route_types=1&devid=3000000&signature=REDACTED",
		plan.RedactedURL,
	)
}
