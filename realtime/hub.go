package realtime

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
}

// Hub bridges the redis pub/sub channels to live websocket clients. System
// channel messages go to every connection, per-user channel messages only to
// that user's connections.
type Hub struct {
	redis *redis.Client
	log   *zap.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(rdb *redis.Client, log *zap.Logger) *Hub {
	return &Hub{
		redis:   rdb,
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

// Run subscribes to every notification channel and forwards messages until
// the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	sub := h.redis.PSubscribe(ctx, ChannelPattern)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.dispatch(msg.Channel, []byte(msg.Payload))
		}
	}
}

func (h *Hub) dispatch(channel string, payload []byte) {
	var target *uuid.UUID
	if strings.HasPrefix(channel, userChannelPrefix) {
		id, err := uuid.Parse(strings.TrimPrefix(channel, userChannelPrefix))
		if err != nil {
			h.log.Warn("unparseable user channel", zap.String("channel", channel))
			return
		}
		target = &id
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if target != nil && c.userID != *target {
			continue
		}
		select {
		case c.send <- payload:
		default:
			// Slow consumer, drop the frame rather than block the hub.
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ServeWS upgrades the request and keeps the connection attached to the hub
// until the peer goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 64),
	}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		// Clients never send application data; this loop only services
		// control frames and detects the close.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
