package wshub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Client represents a single WebSocket connection.
type Client struct {
	ConnID string
	Conn   *websocket.Conn
	Send   chan []byte
}

func NewClient(connID string, conn *websocket.Conn) *Client {
	return &Client{
		ConnID: connID,
		Conn:   conn,
		Send:   make(chan []byte, 32),
	}
}

// WritePump reads from the Send channel and writes to the WebSocket
// connection until the context ends or the channel closes.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

// Deliver queues one message for this client only. Non-blocking: drops if
// the client's channel is full.
func (c *Client) Deliver(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal server message", "error", err)
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

// Hub fans messages out to a set of connections: one hub per room, plus a
// lobby hub holding every connection for directory updates.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ConnID] = c
}

// Unregister removes a client. It does not close the Send channel: a client
// may belong to several hubs (room and lobby) and is closed once by its
// connection handler.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connID)
}

// Len reports the number of registered clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to every client in the hub. Non-blocking: a
// client with a full channel misses the message rather than stalling the
// rest of the room.
func (h *Hub) Broadcast(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal server message", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.Send <- data:
		default:
		}
	}
}
