package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"commentboard/internal/notifications"
	"commentboard/internal/observability"
)

// WebSocketUpgrade rejects plain HTTP requests to the live endpoint.
func (s *Server) WebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// WebSocketCommentsHandler godoc
// @Summary Live comment updates
// @Description WebSocket endpoint. Send "join-comments" to receive comment:new, comment:updated and comment:deleted events.
// @Tags live
// @Router /ws [get]
func (s *Server) WebSocketCommentsHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client, err := s.hub.Register(conn)
		if err != nil {
			observability.NewWSLogger(s.hub.Name()).LogError(context.Background(), "", err, "register")
			frame, _ := notifications.Event{
				Type:    notifications.EventError,
				Payload: map[string]string{"message": err.Error()},
			}.Encode()
			_ = conn.WriteMessage(websocket.TextMessage, frame)
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
			_ = conn.Close()
			return
		}

		// The connection is released when this handler returns, so wait
		// for the writer to finish before leaving.
		done := make(chan struct{})
		go func() {
			defer close(done)
			client.WritePump()
		}()
		client.ReadPump()
		<-done
	})
}
