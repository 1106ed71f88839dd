package models

import "github.com/tripfeed/tripfeed/internal/gtfsrt"

// DebugSampleSize is the number of entities included in a debug response.
const DebugSampleSize = 3

// TripUpdatesResponse is the success envelope for a trip-updates request.
type TripUpdatesResponse struct {
	OK          bool            `json:"ok"`
	Mode        string          `json:"mode"`
	EntityCount int             `json:"entityCount"`
	Timestamp   int64           `json:"timestamp"`
	Entities    []gtfsrt.Entity `json:"entities"`
}

// DebugResponse replaces the entity list with a sample and upstream details.
type DebugResponse struct {
	OK                bool            `json:"ok"`
	Debug             bool            `json:"debug"`
	Mode              string          `json:"mode"`
	EntityCount       int             `json:"entityCount"`
	Timestamp         int64           `json:"timestamp"`
	SampleIDs         []string        `json:"sampleIds"`
	Sample            []gtfsrt.Entity `json:"sample"`
	URL               string          `json:"url"`
	AuthScheme        string          `json:"authScheme"`
	CredentialPresent bool            `json:"credentialPresent"`
}

// NewTripUpdatesResponse builds the success envelope for feed.
func NewTripUpdatesResponse(mode string, feed gtfsrt.Feed) TripUpdatesResponse {
	entities := feed.Entities
	if entities == nil {
		entities = []gtfsrt.Entity{}
	}
	return TripUpdatesResponse{
		OK:          true,
		Mode:        mode,
		EntityCount: len(entities),
		Timestamp:   feed.Header.Timestamp,
		Entities:    entities,
	}
}

// NewDebugResponse builds the debug envelope for feed.
func NewDebugResponse(mode string, feed gtfsrt.Feed, url, authScheme string) DebugResponse {
	n := len(feed.Entities)
	if n > DebugSampleSize {
		n = DebugSampleSize
	}
	sample := make([]gtfsrt.Entity, n)
	copy(sample, feed.Entities[:n])

	ids := make([]string, n)
	for i, e := range sample {
		ids[i] = e.ID
	}

	return DebugResponse{
		OK:                true,
		Debug:             true,
		Mode:              mode,
		EntityCount:       len(feed.Entities),
		Timestamp:         feed.Header.Timestamp,
		SampleIDs:         ids,
		Sample:            sample,
		URL:               url,
		AuthScheme:        authScheme,
		CredentialPresent: true,
	}
}

// EchoHeaders are the request headers reflected by the echo endpoints.
type EchoHeaders struct {
	UserAgent string `json:"user-agent,omitempty"`
	VercelID  string `json:"x-vercel-id,omitempty"`
}

// EchoResponse reflects routing details back to the caller.
type EchoResponse struct {
	OK        bool              `json:"ok"`
	Mode      string            `json:"mode,omitempty"`
	Path      string            `json:"path"`
	Query     map[string]string `json:"query"`
	Headers   EchoHeaders       `json:"headers"`
	Timestamp Timestamp         `json:"timestamp"`
}
