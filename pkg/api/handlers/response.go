package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/marmos91/rankly/pkg/engine"
	"github.com/marmos91/rankly/pkg/resource"
	"github.com/marmos91/rankly/pkg/scheduler"
	"github.com/marmos91/rankly/pkg/visibility"
)

// Response is the wrapper used by the health endpoints.
//
// Status is "healthy" or "unhealthy". Data carries the payload and Error the
// failure reason.
type Response struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Problem is the body of every error response outside /health.
type Problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error codes carried by Problem.Code.
const (
	CodeBadRequest  = "BAD_REQUEST"
	CodeValidation  = "VALIDATION_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodeConflict    = "CONFLICT"
	CodeUnavailable = "UNAVAILABLE"
	CodeInternal    = "INTERNAL"
)

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	// The header is already out, so an encoding failure can only be dropped.
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, code, msg, details string) {
	WriteJSON(w, status, Problem{Code: code, Message: msg, Details: details})
}

func BadRequest(w http.ResponseWriter, msg string) {
	writeProblem(w, http.StatusBadRequest, CodeBadRequest, msg, "")
}

func NotFound(w http.ResponseWriter, msg string) {
	writeProblem(w, http.StatusNotFound, CodeNotFound, msg, "")
}

func Conflict(w http.ResponseWriter, msg, details string) {
	writeProblem(w, http.StatusConflict, CodeConflict, msg, details)
}

func ServiceUnavailable(w http.ResponseWriter, msg string) {
	writeProblem(w, http.StatusServiceUnavailable, CodeUnavailable, msg, "")
}

func InternalServerError(w http.ResponseWriter, msg string) {
	writeProblem(w, http.StatusInternalServerError, CodeInternal, msg, "")
}

// MapEngineError translates engine and component errors into an HTTP status
// and a problem code.
func MapEngineError(err error) (status int, code string) {
	switch {
	case errors.Is(err, engine.ErrClosed),
		errors.Is(err, scheduler.ErrClosed),
		errors.Is(err, visibility.ErrClosed),
		errors.Is(err, resource.ErrSourceClosed):
		return http.StatusServiceUnavailable, CodeUnavailable
	case errors.Is(err, engine.ErrUnknownTarget),
		errors.Is(err, engine.ErrNotResident),
		errors.Is(err, resource.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, scheduler.ErrLoadFailed):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, visibility.ErrInvalidRegistration),
		errors.Is(err, visibility.ErrInvalidWatch),
		errors.Is(err, scheduler.ErrInvalidPriority),
		errors.Is(err, resource.ErrInvalidKey):
		return http.StatusBadRequest, CodeValidation
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// writeEngineError writes err using MapEngineError. Internal errors hide the
// underlying message.
func writeEngineError(w http.ResponseWriter, err error) {
	status, code := MapEngineError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Internal server error"
	}
	writeProblem(w, status, code, msg, "")
}

func healthyResponse(data any) Response {
	return Response{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func unhealthyResponse(errMsg string, data any) Response {
	return Response{
		Status:    "unhealthy",
		Timestamp: time.Now().UTC(),
		Data:      data,
		Error:     errMsg,
	}
}
