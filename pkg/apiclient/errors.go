package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Problem codes returned by the server.
const (
	CodeBadRequest  = "BAD_REQUEST"
	CodeValidation  = "VALIDATION_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodeConflict    = "CONFLICT"
	CodeUnavailable = "UNAVAILABLE"
	CodeInternal    = "INTERNAL"
)

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

// IsNotFound returns true if this is a not found error.
func (e *APIError) IsNotFound() bool {
	return e.Code == CodeNotFound || e.StatusCode == http.StatusNotFound
}

// IsConflict returns true if this is a conflict error, such as a resource
// whose load failed.
func (e *APIError) IsConflict() bool {
	return e.Code == CodeConflict || e.StatusCode == http.StatusConflict
}

// IsValidationError returns true if this is a validation error.
func (e *APIError) IsValidationError() bool {
	return e.Code == CodeValidation || e.Code == CodeBadRequest
}

// IsUnavailable returns true when the engine is stopped or its source is
// unreachable.
func (e *APIError) IsUnavailable() bool {
	return e.Code == CodeUnavailable || e.StatusCode == http.StatusServiceUnavailable
}

// parseAPIError builds an APIError from a problem body, an unhealthy health
// response, or a plain-text body.
func parseAPIError(status int, body []byte) *APIError {
	var apiErr APIError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		apiErr.StatusCode = status
		return &apiErr
	}

	var health struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &health) == nil && health.Error != "" {
		return &APIError{StatusCode: status, Message: health.Error}
	}

	msg := string(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}
