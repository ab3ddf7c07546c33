// Package socket keeps one live websocket connection per signed-in user and
// pushes JSON notifications to it.
package socket

import (
	"encoding/json"
	"sync"
	"time"

	"pest-tracker-api-server/internal/log"
	"pest-tracker-api-server/internal/metrics"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// client serializes writes; gorilla connections allow one concurrent writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// Hub tracks the connected clients keyed by user id.
type Hub struct {
	clients map[string]*client
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
	}
}

// Register adds conn for userID. A previous connection of the same user is closed.
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	old, replaced := h.clients[userID]
	h.clients[userID] = &client{conn: conn}
	h.mu.Unlock()

	if replaced {
		old.conn.Close()
	} else {
		metrics.WebSocketClients.Inc()
	}
	logger := log.WithComponent("socket")
	logger.Debug().Str("user_id", userID).Msg("websocket client registered")
}

// Unregister removes userID if conn is still its current connection.
func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[userID]; ok && c.conn == conn {
		delete(h.clients, userID)
		metrics.WebSocketClients.Dec()
		logger := log.WithComponent("socket")
		logger.Debug().Str("user_id", userID).Msg("websocket client unregistered")
	}
}

// Connected reports whether userID has a live connection.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// Send writes message to userID. An offline user is not an error.
func (h *Hub) Send(userID string, message []byte) error {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	if err := c.write(websocket.TextMessage, message); err != nil {
		return err
	}
	metrics.NotificationsSent.Inc()
	return nil
}

// Notify marshals event as JSON and sends it to userID, logging failures.
func (h *Hub) Notify(userID string, event any) {
	logger := log.WithComponent("socket")
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("failed to encode notification")
		return
	}
	if err := h.Send(userID, payload); err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("failed to deliver notification")
	}
}

// Ping writes a ping control frame to userID.
func (h *Hub) Ping(userID string) error {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	return c.write(websocket.PingMessage, nil)
}
