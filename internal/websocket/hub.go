// Package websocket is the bot's chat channel: each connection sends
// command frames and receives one reply frame per command.
package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/NomadCrew/oweather-bot/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Hub tracks the open chat connections.
type Hub struct {
	log          *zap.SugaredLogger
	connections  map[string]*Connection // connection ID -> connection
	mu           sync.RWMutex
	shutdownOnce sync.Once
	sendBuffer   int
}

// Connection is one client session.
type Connection struct {
	ID     string
	Conn   *websocket.Conn
	sendCh chan ServerMessage
	mu     sync.Mutex
	closed bool
}

// HubConfig contains configuration options for the Hub and Handler.
type HubConfig struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
	// ReadLimit caps the size of a client frame in bytes.
	ReadLimit int64
}

// DefaultHubConfig returns the defaults used by the service.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
		SendBuffer:   32,
		ReadLimit:    4096,
	}
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg ...HubConfig) *Hub {
	config := DefaultHubConfig()
	if len(cfg) > 0 {
		config = cfg[0]
	}

	return &Hub{
		log:         logger.GetLogger().Named("websocket_hub"),
		connections: make(map[string]*Connection),
		sendBuffer:  config.SendBuffer,
	}
}

// Register adds conn under a new connection ID.
func (h *Hub) Register(conn *websocket.Conn) *Connection {
	connection := &Connection{
		ID:     uuid.New().String(),
		Conn:   conn,
		sendCh: make(chan ServerMessage, h.sendBuffer),
	}

	h.mu.Lock()
	h.connections[connection.ID] = connection
	h.mu.Unlock()

	h.log.Debugw("WebSocket connection registered", "connectionID", connection.ID)
	return connection
}

// Unregister removes and closes a connection.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	conn, ok := h.connections[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.connections, id)
	h.mu.Unlock()

	h.closeConnection(conn, websocket.StatusNormalClosure, "connection closed")
}

func (h *Hub) closeConnection(conn *Connection, code websocket.StatusCode, reason string) {
	conn.mu.Lock()
	if conn.closed {
		conn.mu.Unlock()
		return
	}
	conn.closed = true
	close(conn.sendCh)
	conn.mu.Unlock()

	if conn.Conn != nil {
		_ = conn.Conn.Close(code, reason)
	}

	h.log.Debugw("WebSocket connection closed",
		"connectionID", conn.ID,
		"reason", reason)
}

// Send queues msg for the connection. It reports false when the connection
// is gone or its buffer is full.
func (h *Hub) Send(id string, msg ServerMessage) bool {
	h.mu.RLock()
	conn, ok := h.connections[id]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return conn.send(msg)
}

func (c *Connection) send(msg ServerMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.sendCh <- msg:
		return true
	default:
		return false
	}
}

// GetConnectionCount returns the number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Shutdown closes every connection with StatusGoingAway.
func (h *Hub) Shutdown(_ context.Context) error {
	h.shutdownOnce.Do(func() {
		h.mu.Lock()
		connections := make([]*Connection, 0, len(h.connections))
		for _, conn := range h.connections {
			connections = append(connections, conn)
		}
		h.connections = make(map[string]*Connection)
		h.mu.Unlock()

		for _, conn := range connections {
			h.closeConnection(conn, websocket.StatusGoingAway, "server shutdown")
		}
	})

	h.log.Info("WebSocket hub shutdown complete")
	return nil
}

// SendChannel returns the channel the handler's write loop drains.
func (c *Connection) SendChannel() <-chan ServerMessage {
	return c.sendCh
}

// IsClosed returns whether the connection is closed.
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
