package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/marmos91/rankly/internal/logger"
	"github.com/marmos91/rankly/pkg/engine"
	"github.com/marmos91/rankly/pkg/visibility"
)

// TargetHandler mounts and unmounts visibility targets.
type TargetHandler struct {
	engine *engine.Engine
}

func NewTargetHandler(eng *engine.Engine) *TargetHandler {
	return &TargetHandler{engine: eng}
}

// RegisterTargetRequest mounts a target. A random UUID is assigned when
// TargetID is empty. Unset margins and thresholds use the configured
// defaults.
type RegisterTargetRequest struct {
	TargetID       string   `json:"target_id,omitempty" validate:"omitempty,max=256"`
	ResourceKey    string   `json:"resource_key" validate:"required,max=1024"`
	OuterMargin    *int     `json:"outer_margin,omitempty" validate:"omitempty,gte=0"`
	OuterThreshold *float64 `json:"outer_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	InnerMargin    *int     `json:"inner_margin,omitempty" validate:"omitempty,gte=0"`
	InnerThreshold *float64 `json:"inner_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
}

func (req *RegisterTargetRequest) options() []visibility.RegisterOption {
	var opts []visibility.RegisterOption
	if req.OuterMargin != nil {
		opts = append(opts, visibility.WithOuterMargin(*req.OuterMargin))
	}
	if req.OuterThreshold != nil {
		opts = append(opts, visibility.WithOuterThreshold(*req.OuterThreshold))
	}
	if req.InnerMargin != nil {
		opts = append(opts, visibility.WithInnerMargin(*req.InnerMargin))
	}
	if req.InnerThreshold != nil {
		opts = append(opts, visibility.WithInnerThreshold(*req.InnerThreshold))
	}
	return opts
}

// Create handles POST /api/v1/targets.
func (h *TargetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req RegisterTargetRequest
	if !bindJSON(w, r, &req) {
		return
	}
	if req.TargetID == "" {
		req.TargetID = uuid.NewString()
	}

	if _, err := h.engine.Mount(req.TargetID, req.ResourceKey, req.options()...); err != nil {
		writeEngineError(w, err)
		return
	}

	ts, err := h.engine.Target(req.TargetID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	logger.DebugCtx(r.Context(), "Target mounted", logger.TargetID(req.TargetID), logger.ResourceKey(req.ResourceKey))
	WriteJSON(w, http.StatusCreated, ts)
}

// targetID reads the {id} segment. chi routes on the raw path, so escaped
// ids arrive still escaped.
func targetID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if unescaped, err := url.PathUnescape(id); err == nil {
		return unescaped
	}
	return id
}

// Get handles GET /api/v1/targets/{id}.
func (h *TargetHandler) Get(w http.ResponseWriter, r *http.Request) {
	ts, err := h.engine.Target(targetID(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, ts)
}

// Delete handles DELETE /api/v1/targets/{id}. Loads already issued for the
// target continue.
func (h *TargetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := targetID(r)
	if !h.engine.Unmount(id) {
		NotFound(w, "Target not found")
		return
	}
	logger.DebugCtx(r.Context(), "Target unmounted", logger.TargetID(id))
	w.WriteHeader(http.StatusNoContent)
}
