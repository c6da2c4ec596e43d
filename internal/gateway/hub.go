// Package gateway exposes the engine to WebSocket clients: it streams
// pipeline events as typed envelopes and accepts a small command set, the
// main one being the runtime active-timeframe switch.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	clientQueueSize = 256
	writeTimeout    = 5 * time.Second
)

// Controller is the orchestrator surface the gateway drives.
type Controller interface {
	SetActiveTimeframe(tf string) error
	ActiveTimeframe() string
}

// envelope wraps every outbound message with its topic.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// command is the inbound client message shape.
type command struct {
	Action    string `json:"action"`
	Timeframe string `json:"timeframe"`
}

// Client is one connected WebSocket consumer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts pipeline events to all connected clients. Slow clients
// lose messages rather than stalling the broadcast.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	control Controller
}

// NewHub creates a Hub driven by the given controller.
func NewHub(control Controller) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		control: control,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event envelope to every connected client. Clients with
// full queues are skipped.
func (h *Hub) Broadcast(topic string, payload any) {
	msg, err := json.Marshal(envelope{Type: topic, Data: payload})
	if err != nil {
		log.Printf("[gateway] marshal %s event: %v", topic, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default: // slow client, drop event
		}
	}
}

// sendTo queues msg for one client. Holding the read lock while sending
// means unregister (which closes the channel under the write lock) cannot
// race the send; a client already gone is skipped.
func (h *Hub) sendTo(c *Client, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default: // slow client, drop reply
	}
}

// RunTopic consumes one bus topic and broadcasts every event until ctx is
// cancelled or the channel closes.
func (h *Hub) RunTopic(ctx context.Context, topic string, ch <-chan any) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			h.Broadcast(topic, payload)
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// ServeWS upgrades an HTTP request and attaches the client to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] upgrade error: %v", err)
		return
	}
	client := &Client{conn: conn, send: make(chan []byte, clientQueueSize)}
	h.register(client)
	log.Printf("[gateway] client connected: %s", r.RemoteAddr)

	go h.writePump(client)
	h.readPump(client, r.RemoteAddr)
}

func (h *Hub) writePump(c *Client) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.unregister(c)
			c.conn.Close()
			return
		}
	}
}

func (h *Hub) readPump(c *Client, remote string) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		log.Printf("[gateway] client disconnected: %s", remote)
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		h.sendTo(c, h.handleCommand(data))
	}
}

// handleCommand executes one inbound command and returns the reply envelope.
func (h *Hub) handleCommand(data []byte) []byte {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return mustMarshal(envelope{Type: "error", Data: "invalid command"})
	}
	switch cmd.Action {
	case "set_timeframe":
		if err := h.control.SetActiveTimeframe(cmd.Timeframe); err != nil {
			return mustMarshal(envelope{Type: "error", Data: err.Error()})
		}
		return mustMarshal(envelope{Type: "timeframe_changed", Data: cmd.Timeframe})
	case "get_timeframe":
		return mustMarshal(envelope{Type: "timeframe", Data: h.control.ActiveTimeframe()})
	default:
		return mustMarshal(envelope{Type: "error", Data: "unknown action: " + cmd.Action})
	}
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"type":"error","data":"internal"}`)
	}
	return b
}
