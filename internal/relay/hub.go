// Package relay streams live logcat lines to WebSocket clients. It is
// a debugging aid for watching a device from another machine; it never
// participates in pattern waits.
package relay

import (
	"log/slog"
	"sync"
)

// Client is a single WebSocket subscriber.
type Client struct {
	ID   string
	Send chan string
	Done chan struct{}
}

// Hub fans incoming log lines out to all connected clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	slog.Info("relay client registered", "clientID", c.ID)
}

// Unregister removes a client. The client's Done channel is closed by
// the handler that created it, not here.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		slog.Info("relay client unregistered", "clientID", id)
	}
}

// Broadcast delivers a line to every client. Slow clients have lines
// dropped rather than stalling the stream.
func (h *Hub) Broadcast(line string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.Send <- line:
		case <-c.Done:
			// Client disconnected
		default:
			slog.Warn("relay client channel full, dropping line", "clientID", c.ID)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
