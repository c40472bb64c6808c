package handlers

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"support-bot/services"
)

// WebSocketUpgrade upgrades HTTP connection to WebSocket
func WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// HandleWebSocket streams pipeline events to an agent console connection.
func HandleWebSocket(manager *services.WebSocketManager) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		agentID, _ := c.Locals("agent_id").(string)
		agentEmail, _ := c.Locals("email").(string)

		conn := &services.WebSocketConnection{
			Conn:       c,
			ConnID:     uuid.New().String(),
			AgentID:    agentID,
			AgentEmail: agentEmail,
			Send:       make(chan []byte, 256),
		}

		manager.RegisterConnection(conn)
		defer manager.UnregisterConnection(conn.ConnID)

		slog.Info("WebSocket connection established",
			"connID", conn.ConnID,
			"agentID", agentID)

		welcomeMsg := map[string]interface{}{
			"type":     "connected",
			"message":  "WebSocket connection established",
			"agent_id": agentID,
		}
		if welcomeData, err := json.Marshal(welcomeMsg); err == nil {
			c.WriteMessage(websocket.TextMessage, welcomeData)
		}

		go handleWebSocketSend(conn)
		handleWebSocketReceive(conn)
	}
}

// handleWebSocketSend pushes queued events to the client with a keepalive ping
func handleWebSocketSend(conn *services.WebSocketConnection) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Error("Failed to write WebSocket message", "error", err)
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleWebSocketReceive drains the client side until it disconnects. The
// console only listens; inbound frames are logged and ignored.
func handleWebSocketReceive(conn *services.WebSocketConnection) {
	conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket read error", "error", err, "connID", conn.ConnID)
			}
			return
		}
		slog.Debug("WebSocket message ignored", "connID", conn.ConnID, "bytes", len(message))
	}
}
