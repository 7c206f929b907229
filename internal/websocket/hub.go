package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Envelope is the frame delivered to subscribers. DepartmentID is empty for
// global events such as cross-department metrics.
type Envelope struct {
	Topic        string    `json:"topic"`
	DepartmentID string    `json:"departmentId,omitempty"`
	Payload      any       `json:"payload"`
	Timestamp    time.Time `json:"timestamp"`
}

// Hub maintains the set of active clients and fans queue events out to the
// clients subscribed to the event's department
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound envelopes awaiting fanout
	broadcast chan Envelope

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex to protect clients map
	mu sync.RWMutex

	// Logger
	logger zerolog.Logger
}

// NewHub creates a new Hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan Envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info().
				Str("client_id", client.id).
				Strs("departments", client.departments).
				Int("total_clients", h.ClientCount()).
				Msg("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info().
					Str("client_id", client.id).
					Int("total_clients", len(h.clients)).
					Msg("client disconnected")
			}
			h.mu.Unlock()

		case env := <-h.broadcast:
			h.fanout(env)
		}
	}
}

// Broadcast queues an envelope for fanout. Drops the envelope when the hub
// is saturated rather than blocking the queue engine.
func (h *Hub) Broadcast(env Envelope) {
	select {
	case h.broadcast <- env:
	default:
		h.logger.Warn().Str("topic", env.Topic).Msg("hub broadcast buffer full, dropping event")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// fanout marshals the envelope once and delivers it to every client whose
// subscription covers the envelope's department
func (h *Hub) fanout(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", env.Topic).Msg("failed to marshal event envelope")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.wantsDepartment(env.DepartmentID) {
			continue
		}

		select {
		case client.send <- data:
		default:
			// Client's send buffer is full, close and remove it
			close(client.send)
			delete(h.clients, client)
			h.logger.Warn().
				Str("client_id", client.id).
				Msg("client send buffer full, closing connection")
		}
	}
}
