package events

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
)

// WebSocketHandler streams hub events to connected clients as JSON.
type WebSocketHandler struct {
	hub    *Hub
	logger *slog.Logger
}

// NewWebSocketHandler creates a handler over the hub.
func NewWebSocketHandler(hub *Hub, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		hub:    hub,
		logger: logger.With("component", "events_ws"),
	}
}

// ServeHTTP upgrades the connection and writes events until the client
// disconnects.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "feed closed"); closeErr != nil {
			h.logger.Debug("failed to close websocket", "error", closeErr)
		}
	}()

	// CloseRead discards inbound frames and cancels the context when the
	// client goes away.
	ctx := ws.CloseRead(r.Context())

	ch, cancel := h.hub.Subscribe()
	defer cancel()

	h.logger.Info("event feed subscriber connected", "ip", r.RemoteAddr)

	for {
		select {
		case ev := <-ch:
			payload, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("failed to marshal event", "type", ev.Type, "error", err)
				continue
			}
			if err := ws.Write(ctx, websocket.MessageText, payload); err != nil {
				h.logger.Debug("event feed write failed, dropping subscriber", "error", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

var _ http.Handler = (*WebSocketHandler)(nil)
