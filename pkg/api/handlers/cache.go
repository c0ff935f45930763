package handlers

import (
	"net/http"

	"github.com/marmos91/rankly/internal/logger"
	"github.com/marmos91/rankly/pkg/engine"
)

// CacheHandler exposes the decoded resource cache.
type CacheHandler struct {
	engine *engine.Engine
}

func NewCacheHandler(eng *engine.Engine) *CacheHandler {
	return &CacheHandler{engine: eng}
}

// Status handles GET /api/v1/cache.
func (h *CacheHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.engine.Cache().Status())
}

// Entries handles GET /api/v1/cache/entries, least recently used first.
func (h *CacheHandler) Entries(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.engine.Cache().Entries())
}

// Clear handles DELETE /api/v1/cache.
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	n := h.engine.Cache().Len()
	h.engine.Cache().Clear()
	logger.InfoCtx(r.Context(), "Cache cleared", logger.KeyEntries, n)
	w.WriteHeader(http.StatusNoContent)
}

// Remove handles DELETE /api/v1/cache/entries?key=.
func (h *CacheHandler) Remove(w http.ResponseWriter, r *http.Request) {
	key, ok := requireKey(w, r)
	if !ok {
		return
	}
	if !h.engine.Cache().Remove(key) {
		NotFound(w, "Resource not cached")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
