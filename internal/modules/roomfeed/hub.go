// Package roomfeed pushes committed room status changes to connected dashboard clients
// over websockets.
package roomfeed

import (
	"encoding/json"
	"sync"
	"time"

	"hotelengine/internal/modules/roomstate"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
)

const EventRoomStatus = "room_status"

// Event is what clients receive.
type Event struct {
	Type    string            `json:"type"`
	Payload *roomstate.Change `json:"payload,omitempty"`
}

type client struct {
	userID int64
	conn   *websocket.Conn
	send   chan []byte
	// rooms narrows the feed; empty means every room
	rooms map[int64]bool
}

// Hub fans room changes out to clients. A slow client drops events rather than blocking
// the publisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
	log     *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{clients: make(map[*client]bool), log: log}
}

// Publish implements roomstate.Publisher.
func (h *Hub) Publish(ch roomstate.Change) {
	data, err := json.Marshal(Event{Type: EventRoomStatus, Payload: &ch})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if len(c.rooms) > 0 && !c.rooms[ch.RoomID] {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.log.WithField("user_id", c.userID).Warn("room feed client too slow, event dropped")
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve registers conn and blocks until the client goes away.
func (h *Hub) Serve(conn *websocket.Conn, userID int64) {
	c := &client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 64),
		rooms:  make(map[int64]bool),
	}
	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).WithField("user_id", c.userID).Debug("room feed read failed")
			}
			return
		}

		var cmd struct {
			Type   string `json:"type"`
			RoomID int64  `json:"room_id"`
		}
		if err := json.Unmarshal(msg, &cmd); err != nil {
			continue
		}

		switch cmd.Type {
		case "subscribe":
			h.mu.Lock()
			c.rooms[cmd.RoomID] = true
			h.mu.Unlock()
		case "unsubscribe":
			h.mu.Lock()
			delete(c.rooms, cmd.RoomID)
			h.mu.Unlock()
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
