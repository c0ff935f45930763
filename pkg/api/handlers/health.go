package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/marmos91/rankly/pkg/engine"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	engine *engine.Engine
}

// NewHealthHandler creates a new health handler. eng may be nil, in which
// case every probe reports unhealthy.
func NewHealthHandler(eng *engine.Engine) *HealthHandler {
	return &HealthHandler{engine: eng}
}

// HealthData is the payload of a healthy probe.
type HealthData struct {
	Service string `json:"service"`
	Source  string `json:"source,omitempty"`
	Running bool   `json:"running"`
	Latency string `json:"latency,omitempty"`
}

// Liveness handles GET /health. It checks the resource source and reports
// 503 when the source is unreachable.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse("engine not initialized", nil))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	st := h.engine.Status()
	data := HealthData{Service: "rankly", Source: st.Source, Running: st.Running}

	start := time.Now()
	err := h.engine.Health(ctx)
	data.Latency = time.Since(start).String()

	if err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error(), data))
		return
	}
	WriteJSON(w, http.StatusOK, healthyResponse(data))
}

// Readiness handles GET /health/ready. The engine is ready once started and
// until stopped.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse("engine not initialized", nil))
		return
	}

	st := h.engine.Status()
	if !st.Running {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse("engine not running", nil))
		return
	}
	WriteJSON(w, http.StatusOK, healthyResponse(st))
}
