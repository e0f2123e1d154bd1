package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/signscribe/internal/app"
)

const (
	writeWait      = 5 * time.Second
	clientSendSize = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Event is one message pushed to websocket clients.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// Event types.
const (
	EventState      = "state"
	EventFrame      = "frame"
	EventTranscript = "transcript"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans session events out to websocket clients. It implements
// app.Listener, so callbacks never block on a slow client: a client whose
// queue is full misses that event.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

var _ app.Listener = (*Hub)(nil)

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSendSize)}
	if !h.register(c) {
		conn.Close()
		return
	}
	go c.writeLoop()

	// Reads only detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast queues an event for every client.
func (h *Hub) Broadcast(eventType string, data any) {
	msg, err := json.Marshal(Event{
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	})
	if err != nil {
		log.Printf("Error encoding %s event: %v", eventType, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// OnState implements app.Listener.
func (h *Hub) OnState(state app.State) {
	h.Broadcast(EventState, state)
}

// OnFrame implements app.Listener.
func (h *Hub) OnFrame(ev app.FrameEvent) {
	h.Broadcast(EventFrame, ev)
}

// OnTranscript implements app.Listener.
func (h *Hub) OnTranscript(ev app.TranscriptEvent) {
	h.Broadcast(EventTranscript, ev)
}

func (c *client) writeLoop() {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
