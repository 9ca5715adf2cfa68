package rpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"agentpay/core/types"
)

const (
	wsWriteTimeout = 10 * time.Second
)

// eventMessage is the websocket frame for one committed event.
type eventMessage struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// handleEvents upgrades to a websocket and streams committed events. The
// optional "types" query parameter filters by comma separated event type or
// module name ("campaign" matches every campaign event).
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s == nil || s.node == nil {
		http.Error(w, "node unavailable", http.StatusServiceUnavailable)
		return
	}
	filter := parseEventFilter(r.URL.Query().Get("types"))
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	// Clients only listen; CloseRead handles control frames and cancels the
	// context once the peer goes away.
	ctx := conn.CloseRead(r.Context())
	if err := s.streamEvents(ctx, conn, filter); err != nil {
		if status := websocket.CloseStatus(err); status == -1 && ctx.Err() == nil {
			s.logger.Warn("event stream failed",
				slog.String("request_id", RequestIDFromContext(r.Context())),
				slog.String("error", err.Error()))
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, filter eventFilter) error {
	updates, cancel := s.node.Subscribe(s.cfg.EventBuffer)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-updates:
			if !ok {
				return nil
			}
			if !filter.match(evt) {
				continue
			}
			if err := writeEvent(ctx, conn, evt); err != nil {
				return err
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, evt *types.Event) error {
	data, err := json.Marshal(eventMessage{Type: evt.Type, Attributes: evt.Attributes})
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

type eventFilter map[string]struct{}

func (f eventFilter) match(evt *types.Event) bool {
	if len(f) == 0 {
		return true
	}
	if _, ok := f[evt.Type]; ok {
		return true
	}
	_, ok := f[evt.Module()]
	return ok
}

func parseEventFilter(raw string) eventFilter {
	filter := make(eventFilter)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			filter[trimmed] = struct{}{}
		}
	}
	return filter
}
