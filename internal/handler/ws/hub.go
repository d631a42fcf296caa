package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	applogger "github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/logger"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The HTTP server already applies CORS; ws clients connect from anywhere.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	symbol string // empty means all symbols
}

// Hub streams scored signals to websocket subscribers. Slow clients are
// dropped rather than allowed to back-pressure the scoring path.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	l       *applogger.Logger
}

func NewHub(l *applogger.Logger) *Hub {
	return &Hub{clients: make(map[*client]struct{}), l: l}
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/signals", h.Serve)
}

// Serve upgrades the request and subscribes the connection. An optional
// symbol query parameter narrows the stream to one instrument.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.l.Warn("ws upgrade failed", applogger.Error(err))
		return nil
	}

	cl := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		symbol: c.QueryParam("symbol"),
	}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.l.Info("ws client connected",
		applogger.String("remote", conn.RemoteAddr().String()),
		applogger.String("symbol", cl.symbol),
		applogger.Int("clients", n))

	go h.writePump(cl)
	go h.readPump(cl)
	return nil
}

// Broadcast marshals the result once and fans it out to interested clients.
func (h *Hub) Broadcast(res *models.ConfidenceResult) {
	if res == nil {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		h.l.Warn("ws marshal error", applogger.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.clients {
		if cl.symbol != "" && cl.symbol != res.Symbol {
			continue
		}
		select {
		case cl.send <- b:
		default:
			// buffer full, let the write pump shut the connection down
			go h.drop(cl)
		}
	}
}

// Close terminates all client connections.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		clients = append(clients, cl)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, cl := range clients {
		close(cl.send)
	}
}

func (h *Hub) drop(cl *client) {
	h.mu.Lock()
	_, ok := h.clients[cl]
	if ok {
		delete(h.clients, cl)
	}
	h.mu.Unlock()
	if ok {
		close(cl.send)
	}
}

// readPump discards inbound frames and detects peer disconnects.
func (h *Hub) readPump(cl *client) {
	defer h.drop(cl)
	cl.conn.SetReadLimit(512)
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case b, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				h.drop(cl)
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(cl)
				return
			}
		}
	}
}
