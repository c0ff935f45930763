package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// ViewportStream is an open /api/v1/viewport/ws connection. Send and Close
// may be called from different goroutines.
type ViewportStream struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// StreamViewport opens the viewport websocket.
func (c *Client) StreamViewport(ctx context.Context) (*ViewportStream, error) {
	u := c.baseURL + "/api/v1/viewport/ws"
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("failed to open viewport stream: %w", err)
	}
	return &ViewportStream{conn: conn}, nil
}

// Send writes one batch and waits for its acknowledgement. A rejected batch
// returns an *APIError and leaves the stream usable.
func (s *ViewportStream) Send(req ViewportRequest) (*ViewportAck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("failed to send viewport batch: %w", err)
	}
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read viewport ack: %w", err)
	}

	if apiErr := parseAPIError(http.StatusBadRequest, data); apiErr.Code != "" {
		return nil, apiErr
	}
	var ack ViewportAck
	if err := jsonUnmarshal(data, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// Close sends a close frame and releases the connection.
func (s *ViewportStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}
