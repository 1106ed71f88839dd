// Package response provides utilities for HTTP response handling.
package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tripfeed/tripfeed/internal/api/middleware"
	"github.com/tripfeed/tripfeed/internal/api/models"
	"github.com/tripfeed/tripfeed/internal/auth"
	"github.com/tripfeed/tripfeed/internal/transit"
)

// JSON writes a JSON response with the given status code.
// Includes X-Request-Id header for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	requestID := middleware.GetRequestID(r.Context())
	if requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	if requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Error writes an error envelope.
func Error(w http.ResponseWriter, r *http.Request, e *models.ErrorResponse) {
	if e.RequestID == "" {
		e.RequestID = middleware.GetRequestID(r.Context())
	}
	e.Write(w)
}

// FromError classifies err into an error envelope and HTTP status.
func FromError(requestID string, err error) *models.ErrorResponse {
	var (
		ue *transit.UpstreamError
		de *transit.DecodeError
	)

	switch {
	case errors.Is(err, transit.ErrInvalidMode):
		return models.NewError(models.CodeInvalidMode, http.StatusBadRequest, requestID, err.Error())

	case errors.Is(err, auth.ErrMissingCredential):
		return models.NewError(models.CodeMissingCredential, http.StatusInternalServerError, requestID, err.Error())

	case errors.As(err, &de):
		e := models.NewError(models.CodeDecodeFailed, http.StatusBadGateway, requestID, err.Error())
		e.ContentType = de.ContentType
		n := de.ByteLength
		e.ByteLength = &n
		return e

	case errors.As(err, &ue):
		if ue.Timeout {
			e := models.NewError(models.CodeTimeout, http.StatusGatewayTimeout, requestID, err.Error())
			e.Timeout = true
			e.Hint = ue.Hint
			return e
		}
		status := ue.StatusCode
		if status == 0 {
			status = http.StatusBadGateway
		}
		e := models.NewError(models.CodeUpstreamError, status, requestID, err.Error())
		e.UpstreamStatus = ue.StatusCode
		e.UpstreamContentType = ue.ContentType
		e.BodyPreview = ue.BodyPreview
		e.Hint = ue.Hint
		return e

	case errors.Is(err, context.DeadlineExceeded):
		e := models.NewError(models.CodeTimeout, http.StatusGatewayTimeout, requestID, err.Error())
		e.Timeout = true
		return e

	default:
		return models.NewInternalError(requestID, err.Error())
	}
}

// WriteError classifies err and writes the matching error envelope.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	Error(w, r, FromError(middleware.GetRequestID(r.Context()), err))
}

// NotFound writes a 404 NotFound error.
func NotFound(w http.ResponseWriter, r *http.Request) {
	Error(w, r, models.NewNotFound(middleware.GetRequestID(r.Context())))
}

// MethodNotAllowed writes a 405 MethodNotAllowed error.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Error(w, r, models.NewMethodNotAllowed(middleware.GetRequestID(r.Context())))
}
