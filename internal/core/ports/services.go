package ports

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/lorrc/ticket-workflow/internal/core/domain"
)

// CreateTicketParams defines the required input for creating a new ticket.
type CreateTicketParams struct {
	Title               string
	Description         string
	DueDate             string
	Severity            domain.Severity
	AISuggestedSeverity *domain.Severity
	Actor               domain.Principal
}

// ReviewTicketParams defines a manager's review of a DRAFT ticket.
type ReviewTicketParams struct {
	TicketID uuid.UUID
	Actor    domain.Principal
	Decision domain.ReviewDecision
}

// EditTicketParams defines an associate's edit of a ticket in REVIEW.
type EditTicketParams struct {
	TicketID    uuid.UUID
	Actor       domain.Principal
	Title       *string
	Description *string
}

// DeleteTicketParams defines the input for soft deleting a ticket.
type DeleteTicketParams struct {
	TicketID uuid.UUID
	Actor    domain.Principal
}

// ListTicketsParams defines the input for listing tickets.
type ListTicketsParams struct {
	Limit  int
	Offset int
	Status *domain.TicketStatus
	Query  *string
}

// TicketPage is one page of a ticket listing.
type TicketPage struct {
	Tickets []*domain.Ticket
	Total   int64
	Limit   int
	Offset  int
}

// TicketService defines the core business operations for managing tickets.
type TicketService interface {
	CreateTicket(ctx context.Context, params CreateTicketParams) (*domain.Ticket, error)
	GetTicket(ctx context.Context, ticketID uuid.UUID) (*domain.Ticket, error)
	ListTickets(ctx context.Context, params ListTicketsParams) (*TicketPage, error)
	ReviewTicket(ctx context.Context, params ReviewTicketParams) (*domain.Ticket, error)
	EditTicket(ctx context.Context, params EditTicketParams) (*domain.Ticket, error)
	DeleteTicket(ctx context.Context, params DeleteTicketParams) error
	ListHistory(ctx context.Context, ticketID uuid.UUID) ([]*domain.TicketHistory, error)
}

// SequenceAllocator hands out per-year ticket numbers.
type SequenceAllocator interface {
	// Allocate runs inside uow when given, otherwise in its own transaction.
	Allocate(ctx context.Context, uow UnitOfWork, year int) (domain.TicketNumber, error)
}

// CSVService exports, mutates and imports ticket CSV files.
type CSVService interface {
	ExportPending(ctx context.Context) (*domain.CSVFile, error)
	AutoProcess(ctx context.Context, content io.Reader) (*domain.CSVFile, error)
	// Import applies statuses row by row. A nil actorID marks an external caller.
	Import(ctx context.Context, content io.Reader, actorID *uuid.UUID) (*domain.ImportResult, error)
}

// AutomationService runs the export, auto-process, import cycle.
type AutomationService interface {
	Run(ctx context.Context, actorID *uuid.UUID) (*domain.AutomationReport, error)
}

// EventBroadcaster defines the port for real-time events.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}

// RunLock serializes automation runs.
type RunLock interface {
	// TryAcquire returns a release func, or ok=false when another run holds it.
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}
