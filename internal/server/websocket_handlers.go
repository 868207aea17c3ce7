package server

import (
	"log/slog"

	"classifieds/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// AdminWebSocketHandler streams admin events to a moderator dashboard.
// AuthRequired and AdminRequired run before the upgrade.
func (s *Server) AdminWebSocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uuid.UUID)
		if !ok {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.adminHub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("admin socket rejected",
				slog.String("user_id", userID.String()),
				slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		middleware.Logger.Info("admin socket connected", slog.String("user_id", userID.String()))
		client.Serve()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if _, ok := middleware.UserID(c); !ok {
			return fiber.ErrUnauthorized
		}
		return upgrade(c)
	}
}
