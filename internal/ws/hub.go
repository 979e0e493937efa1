package ws

import (
	"encoding/json"
	"sync"
)

// Screens clients can subscribe to.
const (
	ScreenCooking   = "cooking"
	ScreenCompleted = "completed"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// screenEvent is an internal struct for routing events to a screen's room
type screenEvent struct {
	Screen string
	Event  Event
}

// Hub maintains the set of active clients and broadcasts snapshot
// events to them, one room per screen.
type Hub struct {
	// Registered clients by screen
	rooms map[string]map[*Client]bool

	// Last broadcast per room, replayed to late joiners so a freshly
	// opened screen renders without waiting for the next change
	lastEvent map[string][]byte

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *screenEvent

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		lastEvent:  make(map[string][]byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *screenEvent, 256),
	}
}

// IsScreen reports whether name is a subscribable screen.
func IsScreen(name string) bool {
	return name == ScreenCooking || name == ScreenCompleted
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.screen] == nil {
				h.rooms[client.screen] = make(map[*Client]bool)
			}
			h.rooms[client.screen][client] = true
			if cached, ok := h.lastEvent[client.screen]; ok {
				select {
				case client.send <- cached:
				default:
				}
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.screen]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					// Clean up empty rooms
					if len(clients) == 0 {
						delete(h.rooms, client.screen)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.Screen]

			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}
			h.lastEvent[event.Screen] = message

			// Send to all clients in this screen's room
			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(h.rooms[event.Screen], client)
					if len(h.rooms[event.Screen]) == 0 {
						delete(h.rooms, event.Screen)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToScreen sends an event to all clients watching a screen.
// This is the public API for the feed wiring to push snapshots.
func (h *Hub) BroadcastToScreen(screen string, event Event) {
	h.broadcast <- &screenEvent{
		Screen: screen,
		Event:  event,
	}
}
