package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/ticket-workflow/internal/core/domain"
)

// ListTicketsRepoParams filters a paginated ticket listing.
type ListTicketsRepoParams struct {
	Status *domain.TicketStatus
	Query  *string
	Limit  int32
	Offset int32
}

// TicketRepository persists tickets. Read methods ignore tombstoned rows
// unless stated otherwise.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	GetByNumberForUpdate(ctx context.Context, ticketNumber string) (*domain.Ticket, error)
	// Exists also reports tombstoned tickets.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	List(ctx context.Context, params ListTicketsRepoParams) ([]*domain.Ticket, int64, error)
	// ListByStatus orders by creation time, then ticket number.
	ListByStatus(ctx context.Context, status domain.TicketStatus) ([]*domain.Ticket, error)
}

// HistoryRepository is append-only.
type HistoryRepository interface {
	Append(ctx context.Context, entry *domain.TicketHistory) (*domain.TicketHistory, error)
	ListByTicketID(ctx context.Context, ticketID uuid.UUID) ([]*domain.TicketHistory, error)
}

// SequenceRepository owns the per-year ticket counters.
type SequenceRepository interface {
	// Increment atomically bumps the counter and returns the new value. It
	// fails with ErrSequenceNotProvisioned when the year has no row.
	Increment(ctx context.Context, year int) (int64, error)
	Provision(ctx context.Context, year int) error
}

// UnitOfWork groups repositories bound to a single connection or transaction.
type UnitOfWork interface {
	Tickets() TicketRepository
	History() HistoryRepository
	Sequences() SequenceRepository
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
	// Pooled returns repositories that run each statement on its own.
	Pooled() UnitOfWork
}
