package response_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripfeed/tripfeed/internal/api/middleware"
	"github.com/tripfeed/tripfeed/internal/api/models"
	"github.com/tripfeed/tripfeed/internal/api/response"
	"github.com/tripfeed/tripfeed/internal/auth"
	"github.com/tripfeed/tripfeed/internal/transit"
)

// requestWithContext creates an HTTP request that has been processed by the RequestID middleware
// to populate the context with a request ID.
func requestWithContext(t *testing.T, method, path string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(method, path, http.NoBody)
	rec := httptest.NewRecorder()

	var processedReq *http.Request
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		processedReq = r
	}))
	handler.ServeHTTP(rec, req)

	return processedReq, httptest.NewRecorder()
}

func TestJSON_IncludesRequestID(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/test")

	response.JSON(rec, req, http.StatusOK, map[string]string{"message": "hello"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("X-Request-Id"), "req_")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestJSON_WithoutRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, map[string]string{"message": "hello"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Request-Id"))
}

func TestNoContent_HasEmptyBody(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodOptions, "/test")

	response.NoContent(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Zero(t, rec.Body.Len())
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   models.ErrorCode
		status int
	}{
		{
			name:   "invalid mode",
			err:    fmt.Errorf("%w: %q", transit.ErrInvalidMode, "ferry"),
			code:   models.CodeInvalidMode,
			status: http.StatusBadRequest,
		},
		{
			name:   "missing credential",
			err:    fmt.Errorf("preparing header credential: %w", auth.ErrMissingCredential),
			code:   models.CodeMissingCredential,
			status: http.StatusInternalServerError,
		},
		{
			name:   "upstream status forwarded",
			err:    fmt.Errorf("fetching tram feed: %w", &transit.UpstreamError{StatusCode: http.StatusServiceUnavailable}),
			code:   models.CodeUpstreamError,
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "upstream without status",
			err:    &transit.UpstreamError{Err: errors.New("connection refused")},
			code:   models.CodeUpstreamError,
			status: http.StatusBadGateway,
		},
		{
			name:   "upstream timeout",
			err:    &transit.UpstreamError{Timeout: true, Err: context.DeadlineExceeded},
			code:   models.CodeTimeout,
			status: http.StatusGatewayTimeout,
		},
		{
			name:   "bare deadline",
			err:    context.DeadlineExceeded,
			code:   models.CodeTimeout,
			status: http.StatusGatewayTimeout,
		},
		{
			name:   "decode failed",
			err:    &transit.DecodeError{ContentType: "text/html", ByteLength: 12},
			code:   models.CodeDecodeFailed,
			status: http.StatusBadGateway,
		},
		{
			name:   "unclassified",
			err:    errors.New("boom"),
			code:   models.CodeUnclassifiedServerError,
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := response.FromError("req_1", tt.err)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.status, e.Status)
			assert.False(t, e.OK)
			assert.Equal(t, "req_1", e.RequestID)
		})
	}
}

func TestWriteError_UpstreamDiagnostics(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/api/gtfs/bus/trip-updates")

	response.WriteError(rec, req, &transit.UpstreamError{
		StatusCode:  http.StatusUnauthorized,
		ContentType: "text/plain",
		BodyPreview: "invalid key",
		Hint:        "check UPSTREAM_HEADER",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "UpstreamError", body["error"])
	assert.Equal(t, float64(401), body["upstreamStatus"])
	assert.Equal(t, "text/plain", body["upstreamContentType"])
	assert.Equal(t, "invalid key", body["bodyPreview"])
	assert.Equal(t, "check UPSTREAM_HEADER", body["hint"])
	assert.Equal(t, rec.Header().Get("X-Request-Id"), body["requestId"])
	assert.NotContains(t, body, "byteLength")
}

func TestWriteError_DecodeDiagnostics(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/api/gtfs/bus/trip-updates")

	response.WriteError(rec, req, fmt.Errorf("decoding bus feed: %w",
		&transit.DecodeError{ContentType: "application/octet-stream", ByteLength: 0}))

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "DecodeFailed", body["error"])
	assert.Equal(t, "application/octet-stream", body["contentType"])
	assert.Equal(t, float64(0), body["byteLength"])
	assert.NotContains(t, body, "bodyPreview")
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/nope")
	response.NotFound(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"NotFound"`)

	req, rec = requestWithContext(t, http.MethodPost, "/api/echo")
	response.MethodNotAllowed(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"MethodNotAllowed"`)
}
