package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"neuropulse/internal/logging"
	"neuropulse/internal/middleware"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	conn     *websocket.Conn
	deviceID uuid.UUID
	writeMu  sync.Mutex
}

func (c *client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub relays monitor updates published on a redis channel to every connected
// display. The subscription lives only while at least one client is connected.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*client]struct{}
	redisClient *redis.Client
	channel     string
	auth        *middleware.JWTAuth
	cancel      context.CancelFunc
	logger      *zap.Logger
}

// NewHub creates a hub; a nil auth accepts unauthenticated connections.
func NewHub(redisClient *redis.Client, channel string, auth *middleware.JWTAuth, logger *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[*client]struct{}),
		redisClient: redisClient,
		channel:     channel,
		auth:        auth,
		logger:      logging.OrNop(logger).Named("ws"),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	var deviceID uuid.UUID
	if h.auth != nil {
		// Browsers cannot set headers on the upgrade request, so the token
		// travels as a query param.
		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		id, err := h.auth.ParseDeviceToken(tokenStr)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		deviceID = id
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, deviceID: deviceID}
	h.register(c)

	// Reads only detect disconnects; clients never send anything we act on.
	go func() {
		defer h.unregister(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}

	if len(h.clients) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel
		go h.subscribe(ctx)
	}

	h.logger.Info("websocket connected", zap.Stringer("device_id", c.deviceID), zap.Int("clients", len(h.clients)))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.conn.Close()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)

	if len(h.clients) == 0 && h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}

	h.logger.Info("websocket disconnected", zap.Stringer("device_id", c.deviceID), zap.Int("clients", len(h.clients)))
}

// Clients returns the number of connected displays.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) subscribe(ctx context.Context) {
	pubsub := h.redisClient.Subscribe(ctx, h.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast([]byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
		}
	}
}

// Close disconnects every client and drops the subscription.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.unregister(c)
	}
}
