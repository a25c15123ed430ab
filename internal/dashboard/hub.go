package dashboard

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/movieme/internal/chart"
	"github.com/roach88/movieme/internal/metrics"
)

// Message types pushed to browsers.
const (
	MessageList  = "list"
	MessageChart = "chart"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

// Message is one websocket push.
type Message struct {
	Type string `json:"type"`
	// Lines is the rendered movie list. Set for MessageList.
	Lines []string `json:"lines,omitempty"`
	// Frame is the chart state. Set for MessageChart.
	Frame *chart.Frame `json:"frame,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
}

// Hub fans messages out to every connected websocket client.
// A client whose send buffer is full is disconnected rather than blocking
// the broadcaster.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	logger  *slog.Logger
	metrics *metrics.Metrics
}

type client struct {
	conn *websocket.Conn
	send chan Message
}

// NewHub creates an empty hub. logger may be nil.
func NewHub(logger *slog.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
		metrics: m,
	}
}

// Broadcast queues msg for every client without blocking.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("websocket client too slow, disconnecting", "remote", c.conn.RemoteAddr().String())
			h.removeLocked(c)
			c.conn.Close()
		}
	}
}

// Serve upgrades the request and streams messages until the client goes
// away. initial is called with the hub locked, so no broadcast can slip
// between the initial state and the first live message.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, initial func() []Message) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan Message, sendBuffer)}
	if !h.register(c, initial) {
		conn.Close()
		return
	}
	h.logger.Debug("websocket client connected", "remote", conn.RemoteAddr().String())

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(c)
	}()

	// The dashboard sends nothing; reading only detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
	conn.Close()
	<-done
	h.logger.Debug("websocket client disconnected", "remote", conn.RemoteAddr().String())
}

func (h *Hub) register(c *client, initial func() []Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if initial != nil {
		for _, msg := range initial() {
			select {
			case c.send <- msg:
			default:
			}
		}
	}
	h.clients[c] = struct{}{}
	h.metrics.AddWSClients(1)
	return true
}

// removeLocked drops c and closes its send channel. Safe to call twice.
func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.AddWSClients(-1)
}

func (h *Hub) writePump(c *client) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			h.logger.Debug("websocket write failed", "error", err)
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones. Hijacked websocket
// connections are not closed by http.Server.Shutdown, so call this on exit.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
		c.conn.Close()
	}
}
