package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/pkg/messaging"
)

const (
	writeWait      = 10 * time.Second
	clientBufSize  = 16
	maxMessageSize = 512
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

// Hub fans broker notifications out to connected websocket clients, routed by
// recipient. A user may hold several connections; each gets its own copy.
type Hub struct {
	broker messaging.Broker
	logger *zerolog.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]map[*client]struct{}
}

func NewHub(broker messaging.Broker, logger *zerolog.Logger) *Hub {
	return &Hub{
		broker:  broker,
		logger:  logger,
		clients: make(map[uuid.UUID]map[*client]struct{}),
	}
}

// Run consumes the notification channel until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	msgs, err := h.broker.Subscribe(ctx, messaging.ChannelNotifications)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-msgs:
			if !ok {
				return nil
			}
			var notification model.Notification
			if err := json.Unmarshal(payload, &notification); err != nil {
				h.logger.Warn().Err(err).Msg("dropping malformed notification")
				continue
			}
			h.deliver(&notification, payload)
		}
	}
}

func (h *Hub) deliver(notification *model.Notification, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[notification.Recipient] {
		select {
		case c.send <- payload:
		default:
			// Slow consumer, drop rather than block the hub.
			h.logger.Warn().Str("user_id", notification.Recipient.String()).Msg("dropping notification for slow client")
		}
	}
}

// ServeWS upgrades the request and registers the connection for the
// authenticated user. The caller guarantees userID is an authenticated
// principal.
func (h *Hub) ServeWS(c *gin.Context, userID uuid.UUID) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	cl := &client{userID: userID, conn: conn, send: make(chan []byte, clientBufSize)}
	h.register(cl)

	go h.writeLoop(cl)
	go h.readLoop(cl)
}

func (h *Hub) register(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[cl.userID] == nil {
		h.clients[cl.userID] = make(map[*client]struct{})
	}
	h.clients[cl.userID][cl] = struct{}{}
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[cl.userID]; ok {
		if _, ok := conns[cl]; ok {
			delete(conns, cl)
			close(cl.send)
			if len(conns) == 0 {
				delete(h.clients, cl.userID)
			}
		}
	}
}

func (h *Hub) writeLoop(cl *client) {
	defer cl.conn.Close()

	for payload := range cl.send {
		cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readLoop discards inbound frames; the socket is push-only. It exists to
// notice the client going away.
func (h *Hub) readLoop(cl *client) {
	defer h.unregister(cl)

	cl.conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}
