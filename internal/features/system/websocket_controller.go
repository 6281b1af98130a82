package system

import (
	"crm-workflow/internal/features/transition"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// WebSocketController streams transition status changes to connected clients.
type WebSocketController struct {
	hub    *transition.Hub
	logger *zap.Logger
}

func NewWebSocketController(hub *transition.Hub, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{hub: hub, logger: logger}
}

func (h *WebSocketController) HandleTransitions(c *websocket.Conn) {
	events, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	entityType := c.Query("entity_type")

	// The read loop only notices the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if entityType != "" && e.EntityType != entityType {
				continue
			}
			if err := c.WriteJSON(e); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}
