package handlers

import (
	"net/http"

	"github.com/marmos91/rankly/internal/logger"
	"github.com/marmos91/rankly/pkg/engine"
	"github.com/marmos91/rankly/pkg/scheduler"
)

// SchedulerHandler exposes the fetch scheduler.
type SchedulerHandler struct {
	engine *engine.Engine
}

func NewSchedulerHandler(eng *engine.Engine) *SchedulerHandler {
	return &SchedulerHandler{engine: eng}
}

// SchedulerStatusResponse is the scheduler snapshot plus the pending keys in
// draw order.
type SchedulerStatusResponse struct {
	scheduler.Status
	PendingKeys []string `json:"pending_keys"`
}

// EnqueueRequest queues keys without any mounted target. Priority defaults
// to medium.
type EnqueueRequest struct {
	Keys     []string `json:"keys" validate:"required,min=1,dive,required"`
	Priority string   `json:"priority,omitempty" validate:"omitempty,oneof=high medium low HIGH MEDIUM LOW"`
}

// EnqueueResponse reports how many keys were actually added. Keys already
// pending, in flight, loaded or failed are skipped.
type EnqueueResponse struct {
	Accepted int                `json:"accepted"`
	Priority scheduler.Priority `json:"priority"`
}

// Status handles GET /api/v1/scheduler.
func (h *SchedulerHandler) Status(w http.ResponseWriter, r *http.Request) {
	s := h.engine.Scheduler()
	WriteJSON(w, http.StatusOK, SchedulerStatusResponse{
		Status:      s.Status(),
		PendingKeys: s.PendingKeys(),
	})
}

// Enqueue handles POST /api/v1/scheduler/enqueue.
func (h *SchedulerHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if !bindJSON(w, r, &req) {
		return
	}

	p := scheduler.PriorityMedium
	if req.Priority != "" {
		var err error
		if p, err = scheduler.ParsePriority(req.Priority); err != nil {
			writeEngineError(w, err)
			return
		}
	}

	if !h.engine.Status().Running {
		ServiceUnavailable(w, "Engine is not running")
		return
	}

	n := h.engine.Prefetch(req.Keys, p)
	logger.DebugCtx(r.Context(), "Keys enqueued over API", logger.KeyAccepted, n, logger.Priority(p))
	WriteJSON(w, http.StatusAccepted, EnqueueResponse{Accepted: n, Priority: p})
}
