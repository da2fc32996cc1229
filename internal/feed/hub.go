package feed

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Event is one live-feed entry pushed to connected admin dashboards. Guest
// RSVP payloads never travel over the feed, only the fact that something
// happened.
type Event struct {
	Type      string    `json:"type"` // "puzzle_solved" or "rsvp_received"
	EventSlug string    `json:"event_slug"`
	GuestName string    `json:"guest_name"`
	At        time.Time `json:"at"`
}

const (
	EventPuzzleSolved = "puzzle_solved"
	EventRSVPReceived = "rsvp_received"
)

// Hub maintains the set of connected feed clients and fans events out to
// them. Slow clients are dropped rather than allowed to block the rest.
type Hub struct {
	clients      map[*Client]struct{}
	clientsMutex sync.RWMutex

	Register   chan *Client
	Unregister chan *Client
	broadcast  chan Event

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan Event, 64),
		logger:     logger,
	}
}

// Publish queues an event for broadcast. Never blocks the caller: if the
// queue is full the event is dropped, the feed is best-effort display.
func (h *Hub) Publish(event Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("feed queue full, dropping event", "type", event.Type)
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clientsMutex.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.clientsMutex.Unlock()
			h.logger.Debug("feed client connected", "total", total)

		case client := <-h.Unregister:
			h.clientsMutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.clientsMutex.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to encode feed event", "error", err)
				continue
			}

			h.clientsMutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// Send buffer full, drop the client
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.clientsMutex.Unlock()
		}
	}
}
