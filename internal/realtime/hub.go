package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"hostelcare/internal/domain/user"
	"hostelcare/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
)

// VisibilityFunc reports whether actor may see the record in c.
type VisibilityFunc func(actor user.Actor, c Change) bool

// WSEvent is pushed to websocket clients
type WSEvent struct {
	Type   string `json:"type"`
	Change Change `json:"change"`
}

const EventChange = "change"

type connection struct {
	actor user.Actor
	conn  *websocket.Conn
	send  chan []byte
}

// Hub bridges the change feed to websocket clients.
type Hub struct {
	feed     Feed
	jwt      *jwt.Service
	visible  VisibilityFunc
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu          sync.RWMutex
	connections map[*connection]struct{}
}

func NewHub(feed Feed, j *jwt.Service, visible VisibilityFunc, allowedOrigins []string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Hub{
		feed:    feed,
		jwt:     j,
		visible: visible,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(origins) == 0 || origins[origin]
			},
		},
		connections: make(map[*connection]struct{}),
	}
}

// ServeWS handles GET /ws?token=JWT&since=ID. Browsers cannot set headers
// on the upgrade request, so the token travels in the query.
func (h *Hub) ServeWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   gin.H{"code": "UNAUTHORIZED", "message": "Token is required"},
		})
		return
	}
	claims, err := h.jwt.ValidateToken(token)
	if err != nil || !user.Role(claims.Role).Valid() {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   gin.H{"code": "INVALID_TOKEN", "message": "Invalid or expired token"},
		})
		return
	}
	actor := user.Actor{ID: claims.UserID, Name: claims.Name, Role: user.Role(claims.Role)}
	since := c.Query("since")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	complaints, err := SubscribeComplaints(ctx, h.feed, since)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   gin.H{"code": "VALIDATION_ERROR", "message": err.Error()},
		})
		return
	}
	notifications, err := SubscribeNotifications(ctx, h.feed, actor.ID, since)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   gin.H{"code": "VALIDATION_ERROR", "message": err.Error()},
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WarnContext(c.Request.Context(), "websocket upgrade failed", "error", err)
		return
	}

	wc := &connection{actor: actor, conn: conn, send: make(chan []byte, 256)}
	h.register(wc)
	h.logger.InfoContext(ctx, "websocket connected", "user_id", actor.ID, "role", actor.Role)

	var wg sync.WaitGroup
	wg.Add(2)
	go h.forward(ctx, &wg, wc, complaints)
	go h.forward(ctx, &wg, wc, notifications)
	go h.writePump(wc)

	h.readPump(wc) // blocks until disconnect

	cancel()
	wg.Wait()
	h.unregister(wc)
	h.logger.InfoContext(ctx, "websocket disconnected", "user_id", actor.ID)
}

// Connected returns the number of live websocket clients.
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Shutdown closes every client connection.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections {
		_ = c.conn.Close()
	}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = struct{}{}
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[c]; ok {
		delete(h.connections, c)
		close(c.send)
	}
}

func (h *Hub) forward(ctx context.Context, wg *sync.WaitGroup, c *connection, changes <-chan Change) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ch, ok := <-changes:
			if !ok {
				// feed dropped us; the client reconnects with since
				_ = c.conn.Close()
				return
			}
			if ch.Topic == TopicComplaints && h.visible != nil && !h.visible(c.actor, ch) {
				continue
			}
			data, err := json.Marshal(WSEvent{Type: EventChange, Change: ch})
			if err != nil {
				continue
			}
			select {
			case c.send <- data:
			case <-ctx.Done():
				return
			default:
				// client too slow
				_ = c.conn.Close()
				return
			}
		}
	}
}

func (h *Hub) readPump(c *connection) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// clients only send control frames
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *connection) {
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
