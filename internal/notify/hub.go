// Package notify delivers realtime notifications to connected browsers.
package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mailnight/pkg/metrics"
)

const writeWait = 10 * time.Second

// Client is one websocket connection. Writes are serialised per client.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *Client) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Hub tracks open connections per user; a user may have several tabs open.
type Hub struct {
	mu         sync.RWMutex
	clients    map[int]map[*Client]struct{}
	maxPerUser int
	logger     *zap.Logger
}

func NewHub(maxPerUser int, logger *zap.Logger) *Hub {
	if maxPerUser <= 0 {
		maxPerUser = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[int]map[*Client]struct{}),
		maxPerUser: maxPerUser,
		logger:     logger,
	}
}

// Register adds conn for userID. Over the per-user limit the connection is
// closed with a policy violation and nil is returned.
func (h *Hub) Register(userID int, conn *websocket.Conn) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	userClients, ok := h.clients[userID]
	if !ok {
		userClients = make(map[*Client]struct{})
		h.clients[userID] = userClients
	}

	if len(userClients) >= h.maxPerUser {
		h.logger.Warn("too many websocket connections", zap.Int("user_id", userID), zap.Int("max", h.maxPerUser))
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many connections for this user"),
			time.Now().Add(writeWait),
		)
		_ = conn.Close()
		return nil
	}

	client := &Client{conn: conn}
	userClients[client] = struct{}{}
	metrics.WebsocketConnections.Inc()
	return client
}

// Unregister removes client and closes its connection.
func (h *Hub) Unregister(userID int, client *Client) {
	if client == nil {
		return
	}

	h.mu.Lock()
	if userClients, ok := h.clients[userID]; ok {
		if _, ok := userClients[client]; ok {
			delete(userClients, client)
			metrics.WebsocketConnections.Dec()
		}
		if len(userClients) == 0 {
			delete(h.clients, userID)
		}
	}
	h.mu.Unlock()

	_ = client.conn.Close()
}

// SendJSON encodes v once and writes it to every connection of userID.
// Users without connections are skipped silently.
func (h *Hub) SendJSON(userID int, v any) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(msg); err != nil {
			h.logger.Warn("failed to write websocket message", zap.Int("user_id", userID), zap.Error(err))
			go h.Unregister(userID, c)
		}
	}
	return nil
}

// ActiveConnections returns the number of open connections of userID.
func (h *Hub) ActiveConnections(userID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
