package handlers

import (
	"net/http"
	"strconv"

	"github.com/marmos91/rankly/pkg/engine"
)

// ResourceHandler exposes per-key consumer state and cached content.
type ResourceHandler struct {
	engine *engine.Engine
}

func NewResourceHandler(eng *engine.Engine) *ResourceHandler {
	return &ResourceHandler{engine: eng}
}

// Get handles GET /api/v1/resources?key=. It does not bump cache recency.
func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, ok := requireKey(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, h.engine.Resource(key))
}

// Content handles GET /api/v1/resources/content?key=. It serves the cached
// bytes and counts as a cache read. Uncached keys get 404, failed keys 409.
func (h *ResourceHandler) Content(w http.ResponseWriter, r *http.Request) {
	key, ok := requireKey(w, r)
	if !ok {
		return
	}

	img, ok := h.engine.Get(key)
	if !ok {
		if err := h.engine.Scheduler().Failure(key); err != nil {
			Conflict(w, "Resource failed to load", err.Error())
			return
		}
		NotFound(w, "Resource not cached")
		return
	}

	w.Header().Set("Content-Type", "image/"+img.Format)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("X-Resource-Width", strconv.Itoa(img.Width()))
	w.Header().Set("X-Resource-Height", strconv.Itoa(img.Height()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}
