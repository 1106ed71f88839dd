package models

import (
	"encoding/json"
	"net/http"
)

// ErrorCode is the machine-readable failure category of an ErrorResponse.
type ErrorCode string

const (
	CodeInvalidMode             ErrorCode = "InvalidMode"
	CodeMissingCredential       ErrorCode = "MissingCredential"
	CodeUpstreamError           ErrorCode = "UpstreamError"
	CodeTimeout                 ErrorCode = "Timeout"
	CodeDecodeFailed            ErrorCode = "DecodeFailed"
	CodeUnclassifiedServerError ErrorCode = "UnclassifiedServerError"
	CodeNotFound                ErrorCode = "NotFound"
	CodeMethodNotAllowed        ErrorCode = "MethodNotAllowed"
	CodeTLSRequired             ErrorCode = "TLSRequired"
)

// ErrorResponse is the failure envelope. Diagnostic fields are only present
// for the categories that produce them; it never carries a stack trace.
type ErrorResponse struct {
	OK        bool      `json:"ok"`
	Code      ErrorCode `json:"error"`
	Message   string    `json:"message,omitempty"`
	RequestID string    `json:"requestId"`

	// UpstreamError and Timeout.
	UpstreamStatus      int    `json:"upstreamStatus,omitempty"`
	UpstreamContentType string `json:"upstreamContentType,omitempty"`
	BodyPreview         string `json:"bodyPreview,omitempty"`
	Hint                string `json:"hint,omitempty"`
	Timeout             bool   `json:"timeout,omitempty"`

	// DecodeFailed.
	ContentType string `json:"contentType,omitempty"`
	ByteLength  *int   `json:"byteLength,omitempty"`

	// Status is the HTTP status the envelope is written with.
	Status int `json:"-"`
}

// NewError creates an ErrorResponse.
func NewError(code ErrorCode, status int, requestID, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Status:    status,
	}
}

// NewNotFound creates a 404 NotFound error.
func NewNotFound(requestID string) *ErrorResponse {
	return NewError(CodeNotFound, http.StatusNotFound, requestID, "")
}

// NewMethodNotAllowed creates a 405 MethodNotAllowed error.
func NewMethodNotAllowed(requestID string) *ErrorResponse {
	return NewError(CodeMethodNotAllowed, http.StatusMethodNotAllowed, requestID, "")
}

// NewInternalError creates a 500 UnclassifiedServerError.
func NewInternalError(requestID, message string) *ErrorResponse {
	return NewError(CodeUnclassifiedServerError, http.StatusInternalServerError, requestID, message)
}

// Write writes the ErrorResponse as JSON to the ResponseWriter.
func (e *ErrorResponse) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if e.RequestID != "" {
		w.Header().Set("X-Request-Id", e.RequestID)
	}
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(e)
}
