package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/askdb/askdb/internal/chat"
	"github.com/askdb/askdb/internal/model"
)

// WSHandler serves the streaming chat endpoint over a websocket.
type WSHandler struct {
	orch     *chat.Orchestrator
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSHandler creates a WSHandler. Origin checking is delegated to the
// CORS layer on the upgrade request.
func NewWSHandler(orch *chat.Orchestrator, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		orch: orch,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// HandleChat handles GET /ws/chat. Each received ChatRequest is answered
// with a stream of StreamEvents. The connection closes when the client
// disconnects or the read fails.
func (h *WSHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		var req model.ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		events := make(chan model.StreamEvent, 16)
		go h.orch.StreamMessage(ctx, req, events)

		for event := range events {
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Warn("websocket write failed", "error", err)
				// Drain so the orchestrator goroutine can finish.
				for range events {
				}
				return
			}
		}
	}
}
