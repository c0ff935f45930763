package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/rankly/pkg/engine"
	"github.com/marmos91/rankly/pkg/resource"
	"github.com/marmos91/rankly/pkg/scheduler"
	"github.com/marmos91/rankly/pkg/visibility"
)

func TestMapEngineError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"engine closed", engine.ErrClosed, http.StatusServiceUnavailable, CodeUnavailable},
		{"scheduler closed", scheduler.ErrClosed, http.StatusServiceUnavailable, CodeUnavailable},
		{"trigger closed", visibility.ErrClosed, http.StatusServiceUnavailable, CodeUnavailable},
		{"source closed", resource.ErrSourceClosed, http.StatusServiceUnavailable, CodeUnavailable},
		{"unknown target", engine.ErrUnknownTarget, http.StatusNotFound, CodeNotFound},
		{"not resident", engine.ErrNotResident, http.StatusNotFound, CodeNotFound},
		{"source miss", resource.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{"load failed", scheduler.ErrLoadFailed, http.StatusConflict, CodeConflict},
		{"bad registration", visibility.ErrInvalidRegistration, http.StatusBadRequest, CodeValidation},
		{"bad priority", scheduler.ErrInvalidPriority, http.StatusBadRequest, CodeValidation},
		{"bad key", resource.ErrInvalidKey, http.StatusBadRequest, CodeValidation},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := MapEngineError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)

			status, code = MapEngineError(fmt.Errorf("wrapped: %w", tt.err))
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestOriginChecker(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/viewport/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	assert.Nil(t, originChecker(nil))

	all := originChecker([]string{"*"})
	require.NotNil(t, all)
	assert.True(t, all(req("https://evil.example")))

	list := originChecker([]string{"https://polls.example", "app.example:3000"})
	assert.True(t, list(req("https://polls.example")))
	assert.True(t, list(req("http://app.example:3000")))
	assert.True(t, list(req("")))
	assert.False(t, list(req("https://evil.example")))
	assert.False(t, list(req("://bad")))
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, validateRequest(&EnqueueRequest{Keys: []string{"a"}, Priority: "high"}))

	err := validateRequest(&EnqueueRequest{})
	assert.ErrorContains(t, err, "EnqueueRequest.Keys failed on 'required'")

	err = validateRequest(&EnqueueRequest{Keys: []string{"a", ""}})
	assert.ErrorContains(t, err, "Keys[1]")

	err = validateRequest(&EnqueueRequest{Keys: []string{"a"}, Priority: "urgent"})
	assert.ErrorContains(t, err, "oneof")

	half := 1.5
	err = validateRequest(&RegisterTargetRequest{ResourceKey: "k", InnerThreshold: &half})
	assert.ErrorContains(t, err, "InnerThreshold")

	err = validateRequest(&ViewportRequest{Reports: []TargetReport{{}}})
	assert.ErrorContains(t, err, "Target")
}
