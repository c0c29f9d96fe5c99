// Package publish broadcasts detection events to websocket subscribers.
package publish

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"skywatch-sim/internal/detection"
)

const (
	sendBuffer = 64
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// ErrClosed is returned when publishing to a closed hub.
var ErrClosed = errors.New("hub closed")

// Message is the JSON frame sent to subscribers.
type Message struct {
	AirspaceID string          `json:"airspace_id"`
	Event      detection.Event `json:"event"`
}

type client struct {
	send     chan []byte
	airspace string // empty subscribes to every airspace
}

// Hub fans events out to connected websocket clients. Slow clients miss
// frames rather than block the publisher.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	closed   bool
	dropped  atomic.Uint64
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHub returns an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients:  make(map[*client]struct{}),
		upgrader: websocket.Upgrader{EnableCompression: false, CheckOrigin: func(*http.Request) bool { return true }},
		log:      log,
	}
}

// Broadcast sends ev to every subscriber of airspaceID.
func (h *Hub) Broadcast(airspaceID string, ev detection.Event) error {
	data, err := json.Marshal(Message{AirspaceID: airspaceID, Event: ev})
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrClosed
	}
	for c := range h.clients {
		if c.airspace != "" && c.airspace != airspaceID {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many frames slow subscribers missed.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// For returns a publisher bound to one airspace.
func (h *Hub) For(airspaceID string) *Channel {
	return &Channel{hub: h, airspaceID: airspaceID}
}

// Channel publishes the events of a single airspace.
type Channel struct {
	hub        *Hub
	airspaceID string
}

// Publish broadcasts ev.
func (c *Channel) Publish(ev detection.Event) error {
	return c.hub.Broadcast(c.airspaceID, ev)
}

// ServeHTTP upgrades the request and streams events until the client goes
// away. The optional airspace query parameter filters the stream.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "err", err)
		return
	}
	c := &client{send: make(chan []byte, sendBuffer), airspace: r.URL.Query().Get("airspace")}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("subscriber connected", "remote", r.RemoteAddr, "airspace", c.airspace)

	go h.writePump(conn, c)
	h.readPump(conn)
	h.remove(c)
}

// readPump discards client frames and returns when the connection closes.
func (h *Hub) readPump(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	return nil
}
