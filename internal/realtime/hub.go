// Package realtime fans catalog events out to websocket subscribers.
package realtime

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	EventFileUploaded     = "file.uploaded"
	EventCatalogReordered = "catalog.reordered"
	EventFileViewed       = "file.viewed"
	EventShareLinkCreated = "file.shareable_link"
)

const (
	sendBuffer = 32
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Event is one catalog change pushed to subscribers.
type Event struct {
	Type     string    `json:"type"`
	FileID   string    `json:"file_id,omitempty"`
	Filename string    `json:"filename,omitempty"`
	Data     any       `json:"data,omitempty"`
	At       time.Time `json:"at"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origin policy is enforced by the CORS middleware and the access gate
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// Hub keeps the set of live subscribers.
type Hub struct {
	clients map[*client]struct{}
	mutex   sync.RWMutex
	closed  bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
	}
}

// Publish delivers ev to every subscriber without blocking. Subscribers whose
// buffer is full are disconnected.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	h.mutex.RLock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			slow = append(slow, c)
		}
	}
	h.mutex.RUnlock()

	for _, c := range slow {
		log.Printf("realtime_drop_slow_client remote=%s", c.conn.RemoteAddr())
		h.unregister(c)
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Handle upgrades the request and streams events until the peer leaves.
func (h *Hub) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	cl := &client{conn: conn, send: make(chan Event, sendBuffer)}
	if !h.register(cl) {
		_ = conn.Close()
		return
	}

	go h.writePump(cl)
	h.readPump(cl)
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mutex.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mutex.Unlock()

	for c := range clients {
		close(c.send)
	}
}

func (h *Hub) register(c *client) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mutex.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.mutex.Unlock()

	if ok {
		close(c.send)
	}
}

// readPump only exists to observe pongs and the close frame.
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
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
