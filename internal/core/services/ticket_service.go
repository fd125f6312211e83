package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/ticket-workflow/internal/core/domain"
	apperrors "github.com/lorrc/ticket-workflow/internal/core/errors"
	"github.com/lorrc/ticket-workflow/internal/core/ports"
)

// Pagination defaults
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// TicketService implements business logic for the ticket lifecycle
type TicketService struct {
	tm          ports.TransactionManager
	allocator   ports.SequenceAllocator
	broadcaster ports.EventBroadcaster
	opts        options
}

var _ ports.TicketService = (*TicketService)(nil)

// NewTicketService creates a new ticket service
func NewTicketService(
	tm ports.TransactionManager,
	allocator ports.SequenceAllocator,
	broadcaster ports.EventBroadcaster,
	opts ...Option,
) *TicketService {
	return &TicketService{
		tm:          tm,
		allocator:   allocator,
		broadcaster: broadcaster,
		opts:        applyOptions(opts),
	}
}

// CreateTicket validates input, allocates a number and stores a DRAFT ticket
// together with its creation history in one transaction.
func (s *TicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	ticketParams := domain.TicketParams{
		Title:               params.Title,
		Description:         params.Description,
		DueDate:             params.DueDate,
		Severity:            params.Severity,
		AISuggestedSeverity: params.AISuggestedSeverity,
		CreatedByID:         params.Actor.ID,
	}

	dueDate, err := ticketParams.Validate()
	if err != nil {
		return nil, err
	}

	now := s.opts.clock()

	var created *domain.Ticket
	err = s.tm.WithinTransaction(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		number, err := s.allocator.Allocate(ctx, uow, now.Year())
		if err != nil {
			return err
		}

		ticket := domain.NewTicket(ticketParams, dueDate, number, now)
		created, err = uow.Tickets().Create(ctx, ticket)
		if err != nil {
			return err
		}

		_, err = uow.History().Append(ctx, created.CreationHistory())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(domain.EventTicketCreated, created)
	return created, nil
}

// GetTicket retrieves a non-deleted ticket
func (s *TicketService) GetTicket(ctx context.Context, ticketID uuid.UUID) (*domain.Ticket, error) {
	return s.tm.Pooled().Tickets().GetByID(ctx, ticketID)
}

// ListTickets returns a page of non-deleted tickets, newest first
func (s *TicketService) ListTickets(ctx context.Context, params ports.ListTicketsParams) (*ports.TicketPage, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	if params.Status != nil && !params.Status.IsValid() {
		return nil, apperrors.NewBadRequestError(apperrors.ErrInvalidStatus, "Invalid status filter")
	}

	tickets, total, err := s.tm.Pooled().Tickets().List(ctx, ports.ListTicketsRepoParams{
		Status: params.Status,
		Query:  params.Query,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, err
	}

	return &ports.TicketPage{
		Tickets: tickets,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}, nil
}

// ReviewTicket applies a manager's APPROVE or CHANGE_SEVERITY decision
func (s *TicketService) ReviewTicket(ctx context.Context, params ports.ReviewTicketParams) (*domain.Ticket, error) {
	updated, err := s.transition(ctx, params.TicketID, func(ticket *domain.Ticket) (*domain.TicketHistory, error) {
		return ticket.Review(params.Actor, params.Decision, s.opts.clock())
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(domain.EventTicketStatusChanged, updated)
	return updated, nil
}

// EditTicket lets the creator revise a ticket that is back in REVIEW
func (s *TicketService) EditTicket(ctx context.Context, params ports.EditTicketParams) (*domain.Ticket, error) {
	edit := domain.TicketEdit{Title: params.Title, Description: params.Description}

	updated, err := s.transition(ctx, params.TicketID, func(ticket *domain.Ticket) (*domain.TicketHistory, error) {
		return ticket.EditInReview(params.Actor, edit, s.opts.clock())
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(domain.EventTicketUpdated, updated)
	return updated, nil
}

// DeleteTicket tombstones a ticket that has not reached PENDING
func (s *TicketService) DeleteTicket(ctx context.Context, params ports.DeleteTicketParams) error {
	deleted, err := s.transition(ctx, params.TicketID, func(ticket *domain.Ticket) (*domain.TicketHistory, error) {
		return ticket.SoftDelete(params.Actor, s.opts.clock())
	})
	if err != nil {
		return err
	}

	s.broadcast(domain.EventTicketDeleted, deleted)
	return nil
}

// ListHistory returns the audit trail of a ticket, newest first. Tombstoned
// tickets keep their history.
func (s *TicketService) ListHistory(ctx context.Context, ticketID uuid.UUID) ([]*domain.TicketHistory, error) {
	uow := s.tm.Pooled()

	exists, err := uow.Tickets().Exists(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.TicketNotFound()
	}

	return uow.History().ListByTicketID(ctx, ticketID)
}

// transition locks the ticket, applies a domain rule and persists the new
// state with its history entry atomically.
func (s *TicketService) transition(
	ctx context.Context,
	ticketID uuid.UUID,
	apply func(ticket *domain.Ticket) (*domain.TicketHistory, error),
) (*domain.Ticket, error) {
	var updated *domain.Ticket
	err := s.tm.WithinTransaction(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		ticket, err := uow.Tickets().GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}

		entry, err := apply(ticket)
		if err != nil {
			return err
		}

		updated, err = uow.Tickets().Update(ctx, ticket)
		if err != nil {
			return err
		}

		_, err = uow.History().Append(ctx, entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// broadcast runs after commit; failures never affect the result.
func (s *TicketService) broadcast(eventType domain.EventType, ticket *domain.Ticket) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Broadcast(domain.NewTicketEvent(eventType, ticket)); err != nil {
		s.opts.logger.Warn("failed to broadcast ticket event",
			"event_type", eventType,
			"ticket_id", ticket.ID,
			"error", err,
		)
	}
}
