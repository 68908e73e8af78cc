package websocket

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrClientClosed is returned when attempting to send to a closed client
var ErrClientClosed = errors.New("client is closed")

// ClientInterface defines the interface that clients must implement
type ClientInterface interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// Hub fans dataset events out to the connected dashboards. It remembers the
// latest event so a dashboard that connects mid-load still learns the state.
// It is safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]ClientInterface
	latest  []byte
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]ClientInterface),
	}
}

// Register adds a client and replays the latest event to it
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	h.clients[client.ID()] = client
	latest := h.latest
	count := len(h.clients)
	h.mu.Unlock()

	log.Debug().
		Str("client_id", client.ID()).
		Int("client_count", count).
		Msg("WebSocket client registered")

	if latest != nil {
		if err := client.Send(latest); err != nil {
			log.Debug().Err(err).Str("client_id", client.ID()).Msg("Failed to replay latest event")
		}
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.clients[client.ID()]; !exists {
		return
	}
	delete(h.clients, client.ID())

	log.Debug().
		Str("client_id", client.ID()).
		Int("client_count", len(h.clients)).
		Msg("WebSocket client unregistered")
}

// Broadcast sends an event to every connected client
func (h *Hub) Broadcast(event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	h.mu.Lock()
	h.latest = data
	recipients := make([]ClientInterface, 0, len(h.clients))
	for _, client := range h.clients {
		recipients = append(recipients, client)
	}
	h.mu.Unlock()

	// Send never blocks; a slow client drops itself
	for _, client := range recipients {
		if err := client.Send(data); err != nil {
			log.Warn().
				Err(err).
				Str("client_id", client.ID()).
				Msg("Failed to send to client")
		}
	}

	log.Debug().
		Str("event_type", event.Type).
		Int("client_count", len(recipients)).
		Msg("Broadcast event")
}

// Latest returns the most recently broadcast event, or nil before the first one
func (h *Hub) Latest() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client, used on shutdown
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]ClientInterface)
	h.mu.Unlock()

	for _, client := range clients {
		_ = client.Close()
	}
}
