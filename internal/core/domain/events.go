package domain

import "github.com/google/uuid"

// EventType defines the type of real-time event.
type EventType string

const (
	EventTicketCreated       EventType = "TICKET_CREATED"
	EventTicketStatusChanged EventType = "TICKET_STATUS_CHANGED"
	EventTicketUpdated       EventType = "TICKET_UPDATED"
	EventTicketDeleted       EventType = "TICKET_DELETED"
)

// Event is the payload sent over WebSocket.
type Event struct {
	Type     EventType   `json:"type"`
	Payload  interface{} `json:"payload"`
	TicketID uuid.UUID   `json:"ticketId"` // Used for routing to specific ticket "rooms"
}

// NewTicketEvent wraps a ticket snapshot for broadcast.
func NewTicketEvent(eventType EventType, ticket *Ticket) Event {
	return Event{
		Type:     eventType,
		Payload:  NewTicketSnapshot(ticket),
		TicketID: ticket.ID,
	}
}
