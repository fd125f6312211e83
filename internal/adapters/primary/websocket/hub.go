package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/lorrc/ticket-workflow/internal/core/domain"
	"github.com/lorrc/ticket-workflow/internal/core/ports"
)

// Hub maintains the set of active Clients and broadcasts ticket events to them.
type Hub struct {
	// Clients maps user IDs to their active connections
	// A single user can have multiple connections (multiple tabs/devices)
	clients map[uuid.UUID]map[*Client]bool

	// Rooms maps ticket IDs to subscribed clients
	rooms map[uuid.UUID]map[*Client]bool

	// feed holds clients that receive every ticket event
	feed map[*Client]bool

	// Broadcast channel for events
	broadcast chan domain.Event

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// done is closed when Run returns
	done chan struct{}

	// mu protects the clients, rooms and feed maps
	mu sync.RWMutex

	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		feed:       make(map[*Client]bool),
		broadcast:  make(chan domain.Event, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Broadcast queues an event for delivery. It never blocks; when the queue
// is full the event is dropped.
func (h *Hub) Broadcast(event domain.Event) error {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"ticket_id", event.TicketID,
		)
	}
	return nil
}

// Run starts the hub's event loop and returns when ctx is done. Every
// connected client is closed on the way out.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)

		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// Attach hands a new client to the running hub. It reports false once the
// hub has stopped.
func (h *Hub) Attach(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Detach removes a client from the running hub. It is a no-op once the hub
// has stopped.
func (h *Hub) Detach(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true

	h.logger.Info("client registered",
		"user_id", client.UserID,
		"total_connections", len(h.clients[client.UserID]),
	)
}

// unregisterClient removes a client from the hub, its rooms and the feed
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userClients, ok := h.clients[client.UserID]
	if !ok || !userClients[client] {
		return
	}
	delete(userClients, client)
	if len(userClients) == 0 {
		delete(h.clients, client.UserID)
	}

	for _, ticketID := range client.GetSubscriptions() {
		h.leaveRoom(client, ticketID)
	}
	delete(h.feed, client)

	client.CloseSend()

	h.logger.Info("client unregistered", "user_id", client.UserID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, userClients := range h.clients {
		for client := range userClients {
			client.CloseSend()
		}
	}
	h.clients = make(map[uuid.UUID]map[*Client]bool)
	h.rooms = make(map[uuid.UUID]map[*Client]bool)
	h.feed = make(map[*Client]bool)
}

// broadcastEvent sends an event to the ticket's room and to feed subscribers
func (h *Hub) broadcastEvent(event domain.Event) {
	h.mu.RLock()
	recipients := make(map[*Client]bool, len(h.rooms[event.TicketID])+len(h.feed))
	for client := range h.rooms[event.TicketID] {
		recipients[client] = true
	}
	for client := range h.feed {
		recipients[client] = true
	}
	h.mu.RUnlock()

	if len(recipients) == 0 {
		return
	}

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"ticket_id", event.TicketID,
		"client_count", len(recipients),
	)

	for client := range recipients {
		select {
		case client.Send <- event:
		default:
			h.logger.Warn("client send buffer full, unregistering", "user_id", client.UserID)
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) subscribeClientToTicket(client *Client, ticketID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[ticketID] == nil {
		h.rooms[ticketID] = make(map[*Client]bool)
	}
	h.rooms[ticketID][client] = true
	client.AddSubscription(ticketID)

	h.logger.Debug("client subscribed to ticket",
		"user_id", client.UserID,
		"ticket_id", ticketID,
	)
}

func (h *Hub) unsubscribeClientFromTicket(client *Client, ticketID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveRoom(client, ticketID)
	client.RemoveSubscription(ticketID)
}

// leaveRoom requires h.mu to be held.
func (h *Hub) leaveRoom(client *Client, ticketID uuid.UUID) {
	if room, ok := h.rooms[ticketID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, ticketID)
		}
	}
}

func (h *Hub) setFeed(client *Client, on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if on {
		h.feed[client] = true
	} else {
		delete(h.feed, client)
	}
}

// GetClientCount returns the total number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, userClients := range h.clients {
		count += len(userClients)
	}
	return count
}

// GetClientsInRoom returns the number of clients subscribed to a ticket
func (h *Hub) GetClientsInRoom(ticketID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[ticketID])
}
