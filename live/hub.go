package live

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"bloodbank/logging"
	"bloodbank/mq"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
	sendBuffer = 16
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans camp events out to websocket subscribers keyed by camp id.
type Hub struct {
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[string]map[*client]struct{}
	closed      bool
}

// NewHub builds a hub. allowOrigin may be nil to accept any origin.
func NewHub(allowOrigin func(*http.Request) bool) *Hub {
	if allowOrigin == nil {
		allowOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		upgrader:    websocket.Upgrader{CheckOrigin: allowOrigin},
		subscribers: make(map[string]map[*client]struct{}),
	}
}

// Broadcast sends ev to every subscriber of its camp. Slow clients are dropped.
func (h *Hub) Broadcast(ev mq.CampEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subscribers[ev.CampID] {
		select {
		case c.send <- data:
		default:
			h.removeLocked(ev.CampID, c)
		}
	}
}

// Subscribers reports how many connections are watching campID.
func (h *Hub) Subscribers(campID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[campID])
}

// Close disconnects every subscriber. Later upgrades are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for campID, set := range h.subscribers {
		for c := range set {
			h.removeLocked(campID, c)
		}
	}
}

func (h *Hub) add(campID string, c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.subscribers[campID]
	if !ok {
		set = make(map[*client]struct{})
		h.subscribers[campID] = set
	}
	set[c] = struct{}{}
	return true
}

func (h *Hub) remove(campID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(campID, c)
}

func (h *Hub) removeLocked(campID string, c *client) {
	set := h.subscribers[campID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.subscribers, campID)
	}
	close(c.send)
}

// ServeCamp upgrades GET /api/camps/:id/live and streams that camp's events.
func (h *Hub) ServeCamp(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	campID := ps.ByName("id")
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.FromContext(r.Context()).Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.add(campID, c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		conn.Close()
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writeLoop()
	}()

	c.readLoop()
	h.remove(campID, c)
	<-done
}

// readLoop discards client frames and returns once the peer goes away.
func (c *client) readLoop() {
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

func (c *client) writeLoop() {
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
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
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
