package dashboard

import (
	"context"
	"sync"
)

// Hub is the central pub/sub broker for dashboard WebSocket clients.
// Mutations to the client registry are serialized through the Run loop;
// Publish only enqueues onto the hub's buffered channel, and the Run loop
// fans each message out to the subscribers.
// It keeps the last-known Message per EventType so a client connecting
// mid-tournament receives an immediate snapshot instead of an empty screen.
type Hub struct {
	clients map[*Client]struct{}

	mu       sync.RWMutex
	snapshot map[EventType]Message

	register   chan *Client
	unregister chan *Client
	publish    chan Message
	stopped    chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		snapshot:   make(map[EventType]Message),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		publish:    make(chan Message, 256),
		stopped:    make(chan struct{}),
	}
}

// Run starts the hub's event loop. Call it exactly once, in its own
// goroutine; it exits when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			snap := make([]Message, 0, len(h.snapshot))
			for _, m := range h.snapshot {
				snap = append(snap, m)
			}
			h.mu.Unlock()
			for _, m := range snap {
				select {
				case c.send <- m:
				default:
				}
			}

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case msg := <-h.publish:
			h.mu.Lock()
			h.snapshot[msg.Type] = msg
			var dead []*Client
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					dead = append(dead, c)
				}
			}
			for _, c := range dead {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[*Client]struct{})
			h.mu.Unlock()
			return
		}
	}
}

// Publish broadcasts msg to every connected client and updates the
// per-type snapshot. Safe to call from any goroutine.
func (h *Hub) Publish(msg Message) {
	select {
	case h.publish <- msg:
	default:
		// Hub's publish buffer is saturated; drop rather than block the
		// caller — dashboard events are best-effort by design.
	}
}

func (h *Hub) Subscribe(c *Client)   { h.register <- c }
func (h *Hub) Unsubscribe(c *Client) { h.unregister <- c }

// ConnectedCount returns the current number of connected WebSocket clients.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
