package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// WebSocket errors
var (
	ErrConnectionNotFound   = errors.New("connection not found")
	ErrConnectionBufferFull = errors.New("connection buffer full")
)

// WebSocketManager fans pipeline events out to connected agent consoles.
type WebSocketManager struct {
	connections map[string]*WebSocketConnection // keyed by connection ID
	mu          sync.RWMutex
	broadcast   chan BroadcastMessage
}

// WebSocketConnection represents a single agent console connection
type WebSocketConnection struct {
	Conn       *websocket.Conn
	ConnID     string
	AgentID    string
	AgentEmail string
	Send       chan []byte
}

// BroadcastMessage represents an event to broadcast
type BroadcastMessage struct {
	Type string
	WaID string
	Data interface{}
}

// MessagePayload is the wire format pushed to agent consoles
type MessagePayload struct {
	Type      string      `json:"type"`
	WaID      string      `json:"wa_id,omitempty"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

func NewWebSocketManager() *WebSocketManager {
	m := &WebSocketManager{
		connections: make(map[string]*WebSocketConnection),
		broadcast:   make(chan BroadcastMessage, 100),
	}
	go m.handleBroadcast()
	return m
}

// RegisterConnection registers a new agent console connection
func (m *WebSocketManager) RegisterConnection(conn *WebSocketConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connections[conn.ConnID] = conn

	slog.Info("WebSocket connection registered",
		"connID", conn.ConnID,
		"agentID", conn.AgentID,
		"totalConnections", len(m.connections))
}

// UnregisterConnection removes an agent console connection
func (m *WebSocketManager) UnregisterConnection(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conn, exists := m.connections[connID]; exists {
		close(conn.Send)
		delete(m.connections, connID)

		slog.Info("WebSocket connection unregistered",
			"connID", connID,
			"remainingConnections", len(m.connections))
	}
}

// Broadcast queues an event for all connected consoles
func (m *WebSocketManager) Broadcast(message BroadcastMessage) {
	select {
	case m.broadcast <- message:
	default:
		slog.Warn("WebSocket broadcast queue full, dropping event", "type", message.Type)
	}
}

// handleBroadcast processes queued events
func (m *WebSocketManager) handleBroadcast() {
	for message := range m.broadcast {
		payload := MessagePayload{
			Type:      message.Type,
			WaID:      message.WaID,
			Data:      message.Data,
			Timestamp: time.Now().Unix(),
		}

		jsonData, err := json.Marshal(payload)
		if err != nil {
			slog.Error("Failed to marshal WebSocket message", "error", err)
			continue
		}

		m.mu.RLock()
		for _, conn := range m.connections {
			select {
			case conn.Send <- jsonData:
				// Message sent successfully
			default:
				// Connection buffer full, skip
				slog.Warn("WebSocket connection buffer full",
					"connID", conn.ConnID,
					"agentID", conn.AgentID)
			}
		}
		m.mu.RUnlock()
	}
}

// SendToConnection sends a message to a specific connection
func (m *WebSocketManager) SendToConnection(connID string, data []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if conn, exists := m.connections[connID]; exists {
		select {
		case conn.Send <- data:
			return nil
		default:
			return ErrConnectionBufferFull
		}
	}
	return ErrConnectionNotFound
}

// ConnectionCount returns the number of active connections
func (m *WebSocketManager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.connections)
}
