// Package hub maintains live WebSocket connections and fans out push events.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single write to a peer.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before it is
	// considered dead and pruned.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound frames; clients only send pongs.
	maxMessageSize = 512

	// sendBuffer is the per-connection outbound queue. A connection that
	// cannot drain it in time loses the event rather than blocking workers.
	sendBuffer = 16
)

// connection is one live channel between a user and the hub.
type connection struct {
	id            string
	userID        string
	ws            *websocket.Conn
	send          chan []byte
	establishedAt time.Time
}

// Hub owns the live connection set. A user may hold any number of
// simultaneous connections; all of them receive every event for that user.
type Hub struct {
	mu     sync.RWMutex
	users  map[string]map[string]*connection
	closed bool
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{
		users: make(map[string]map[string]*connection),
	}
}

// envelope is the wire format of a pushed event.
type envelope struct {
	Event string  `json:"event"`
	Data  Payload `json:"data"`
}

// Register admits an already-authenticated WebSocket connection for a user
// and starts its read/write pumps. It returns the connection id.
func (h *Hub) Register(userID string, ws *websocket.Conn) string {
	c := &connection{
		id:            uuid.New().String(),
		userID:        userID,
		ws:            ws,
		send:          make(chan []byte, sendBuffer),
		establishedAt: time.Now(),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = ws.Close()
		return ""
	}
	conns, ok := h.users[userID]
	if !ok {
		conns = make(map[string]*connection)
		h.users[userID] = conns
	}
	conns[c.id] = c
	h.mu.Unlock()

	go c.writePump(h)
	go c.readPump(h)

	slog.Info("connection registered", "user_id", userID, "conn_id", c.id)
	return c.id
}

// SendToUser pushes an event to every open connection of the user. Delivery
// is at-most-once per connection; with zero open connections the event is
// dropped without error.
func (h *Hub) SendToUser(userID, event string, payload Payload) {
	msg, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		slog.Warn("failed to marshal push event", "event", event, "error", err)
		return
	}

	// Channel sends happen under the read lock and closes under the write
	// lock, so an event can never race a connection teardown.
	h.mu.RLock()
	if len(h.users[userID]) == 0 {
		h.mu.RUnlock()
		slog.Debug("push dropped, no open connections", "user_id", userID, "event", event)
		return
	}
	var stalled []*connection
	for _, c := range h.users[userID] {
		select {
		case c.send <- msg:
		default:
			// Queue full: the peer is not draining.
			stalled = append(stalled, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stalled {
		slog.Warn("connection not draining, pruning", "user_id", userID, "conn_id", c.id)
		h.remove(c)
	}
}

// Connections returns the number of open connections for a user.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Shutdown closes every connection and rejects future registrations.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	var all []*connection
	for _, conns := range h.users {
		for _, c := range conns {
			all = append(all, c)
		}
	}
	h.users = make(map[string]map[string]*connection)
	for _, c := range all {
		close(c.send)
	}
	h.mu.Unlock()

	slog.Info("hub shut down", "closed_connections", len(all))
}

// remove drops a connection from the registry and closes its send channel
// exactly once.
func (h *Hub) remove(c *connection) {
	h.mu.Lock()
	conns, ok := h.users[c.userID]
	if ok {
		if _, present := conns[c.id]; present {
			delete(conns, c.id)
			if len(conns) == 0 {
				delete(h.users, c.userID)
			}
			close(c.send)
		}
	}
	h.mu.Unlock()
}

// writePump serializes all writes to the peer and probes liveness with pings.
func (c *connection) writePump(h *Hub) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Debug("write failed, dropping connection", "conn_id", c.id, "error", err)
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readPump consumes inbound frames to process pongs and detect disconnects.
func (c *connection) readPump(h *Hub) {
	defer h.remove(c)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			slog.Debug("connection closed", "user_id", c.userID, "conn_id", c.id, "error", err)
			return
		}
	}
}
