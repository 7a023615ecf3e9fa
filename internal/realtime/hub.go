package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/TPI-Manager/TPI-Manager/internal/models"
)

// Hub tracks live websocket clients and plugs them into the broker.
type Hub struct {
	broker *Broker
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
}

func NewHub(broker *Broker, logger *zap.Logger) *Hub {
	return &Hub{
		broker:  broker,
		logger:  logger,
		clients: make(map[*Client]struct{}),
	}
}

// HandleConnection takes ownership of an upgraded connection and serves it
// until the peer disconnects. Safe to call from the HTTP handler goroutine;
// it returns immediately after starting the pumps.
func (h *Hub) HandleConnection(conn *websocket.Conn, user *models.JWTClaims) {
	client := &Client{
		hub:    h,
		conn:   conn,
		user:   user,
		send:   make(chan []byte, 256),
		subs:   make(map[string]*Subscription),
		logger: h.logger.With(zap.String("userId", user.UserID)),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", zap.String("userId", user.UserID))

	go client.writePump()
	go client.readPump()
}

// ClientCount reports currently connected websocket clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Shutdown disconnects every client.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}
