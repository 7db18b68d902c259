package notify

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mailnight/pkg/util"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// served behind the same origin as the API
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades authenticated requests and registers them with the hub.
// Browsers cannot set headers on websocket requests, so the token may come
// from the ?token= query parameter.
type WSHandler struct {
	hub       *Hub
	jwtSecret string
	logger    *zap.Logger
}

func NewWSHandler(hub *Hub, jwtSecret string, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{hub: hub, jwtSecret: jwtSecret, logger: logger}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := util.ExtractToken(r)
	if token == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID, err := util.ParseJWT(token, h.jwtSecret)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Int("user_id", userID), zap.Error(err))
		return
	}

	client := h.hub.Register(userID, conn)
	if client == nil {
		return
	}
	go h.readLoop(userID, client)
}

// readLoop discards inbound frames until the peer goes away.
func (h *WSHandler) readLoop(userID int, client *Client) {
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			break
		}
	}
	h.hub.Unregister(userID, client)
}
