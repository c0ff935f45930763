package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marmos91/rankly/internal/logger"
	"github.com/marmos91/rankly/pkg/engine"
	"github.com/marmos91/rankly/pkg/visibility"
)

const (
	// DefaultPingInterval is the time between websocket pings.
	DefaultPingInterval = 30 * time.Second

	// DefaultPongWait is how long a pong may take before the stream is
	// considered dead.
	DefaultPongWait = 5 * time.Second

	// maxWsMsgSize bounds a single viewport message.
	maxWsMsgSize = maxBodyBytes
)

// TargetReport is one geometry sample for a mounted target.
type TargetReport struct {
	Target   string              `json:"target" validate:"required"`
	Geometry visibility.Geometry `json:"geometry"`
}

// ViewportRequest is one batch of layout samples. Viewport, when set, moves
// the viewport for every target the hub has seen before Reports apply.
type ViewportRequest struct {
	Viewport *visibility.Rect `json:"viewport,omitempty"`
	Reports  []TargetReport   `json:"reports" validate:"dive"`
}

// TargetState is one reported target's state when the response was built.
// Zone and Resource may not yet reflect the batch that produced it.
type TargetState struct {
	Target   string           `json:"target"`
	Zone     visibility.State `json:"zone"`
	Resource engine.State     `json:"resource"`
}

// ViewportResponse acknowledges a batch. Applied counts reports for mounted
// targets; the rest are dropped.
type ViewportResponse struct {
	Applied int           `json:"applied"`
	Targets []TargetState `json:"targets"`
}

// ViewportHandler feeds geometry reports to the engine's proximity hub.
type ViewportHandler struct {
	engine       *engine.Engine
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	pongWait     time.Duration
}

// NewViewportHandler creates the handler. allowedOrigins lists the origins
// accepted on the websocket. Empty allows same-origin requests only and "*"
// allows any origin.
func NewViewportHandler(eng *engine.Engine, allowedOrigins []string) *ViewportHandler {
	return &ViewportHandler{
		engine: eng,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		pingInterval: DefaultPingInterval,
		pongWait:     DefaultPongWait,
	}
}

// WithPing overrides the keepalive timing. Zero disables pings.
func (h *ViewportHandler) WithPing(interval, wait time.Duration) *ViewportHandler {
	h.pingInterval, h.pongWait = interval, wait
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		// gorilla's default same-origin check
		return nil
	}
	if slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return slices.Contains(allowed, origin) || slices.Contains(allowed, u.Host)
	}
}

// Report handles POST /api/v1/viewport.
func (h *ViewportHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req ViewportRequest
	if !bindJSON(w, r, &req) {
		return
	}
	WriteJSON(w, http.StatusOK, h.apply(&req))
}

// apply feeds req to the hub and collects the resulting states.
func (h *ViewportHandler) apply(req *ViewportRequest) ViewportResponse {
	if req.Viewport != nil {
		h.engine.ReportViewport(*req.Viewport)
	}

	resp := ViewportResponse{Targets: make([]TargetState, 0, len(req.Reports))}
	for _, rep := range req.Reports {
		if h.engine.Report(rep.Target, rep.Geometry) {
			resp.Applied++
		}
	}

	// The trigger handles the batch's events on its own goroutines, so these
	// states may still predate them.
	for _, rep := range req.Reports {
		st := TargetState{Target: rep.Target}
		if ts, err := h.engine.Target(rep.Target); err == nil {
			st.Zone = ts.Record.State
			st.Resource = ts.Resource.State
		}
		resp.Targets = append(resp.Targets, st)
	}
	return resp
}

// Stream handles GET /api/v1/viewport/ws. Each text message is a
// ViewportRequest and is answered with a ViewportResponse, or a Problem when
// the message is invalid. The stream ends when the client closes it or stops
// answering pings.
func (h *ViewportHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		logger.DebugCtx(r.Context(), "Viewport stream upgrade failed", logger.Err(err))
		return
	}
	defer func() { _ = conn.Close() }()
	conn.SetReadLimit(maxWsMsgSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if h.pingInterval > 0 && h.pongWait > 0 {
		h.keepalive(ctx, conn)
	}

	logger.DebugCtx(ctx, "Viewport stream opened", "remote_addr", r.RemoteAddr)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.DebugCtx(ctx, "Viewport stream ended", logger.Err(err))
			}
			return
		}

		var req ViewportRequest
		var reply any
		if err := json.Unmarshal(data, &req); err != nil {
			reply = Problem{Code: CodeBadRequest, Message: "Invalid report", Details: err.Error()}
		} else if err := validateRequest(&req); err != nil {
			reply = Problem{Code: CodeValidation, Message: "Invalid report", Details: err.Error()}
		} else {
			reply = h.apply(&req)
		}

		// Writes only happen on this goroutine. Pings use WriteControl,
		// which is safe to call concurrently.
		if err := conn.WriteJSON(reply); err != nil {
			logger.DebugCtx(ctx, "Viewport stream write failed", logger.Err(err))
			return
		}
	}
}

// keepalive arms read deadlines and pings the client until ctx ends.
func (h *ViewportHandler) keepalive(ctx context.Context, conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(h.pingInterval + h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pingInterval + h.pongWait))
	})

	go func() {
		ticker := time.NewTicker(h.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deadline := time.Now().Add(h.pongWait)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			}
		}
	}()
}
