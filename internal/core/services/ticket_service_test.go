package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/ticket-workflow/internal/core/domain"
	apperrors "github.com/lorrc/ticket-workflow/internal/core/errors"
	"github.com/lorrc/ticket-workflow/internal/core/mocks"
	"github.com/lorrc/ticket-workflow/internal/core/ports"
	"github.com/lorrc/ticket-workflow/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type ticketFixture struct {
	uow         *mocks.MockUnitOfWork
	tm          *mocks.MockTransactionManager
	allocator   *mocks.MockSequenceAllocator
	broadcaster *mocks.MockEventBroadcaster
	svc         *services.TicketService
}

func newTicketFixture() *ticketFixture {
	uow := mocks.NewMockUnitOfWork()
	tm := mocks.NewMockTransactionManager(uow)
	allocator := mocks.NewMockSequenceAllocator()
	broadcaster := mocks.NewMockEventBroadcaster()

	return &ticketFixture{
		uow:         uow,
		tm:          tm,
		allocator:   allocator,
		broadcaster: broadcaster,
		svc:         services.NewTicketService(tm, allocator, broadcaster, services.WithClock(fixedClock)),
	}
}

func ticketInStatus(creator uuid.UUID, status domain.TicketStatus, severity domain.Severity) *domain.Ticket {
	return &domain.Ticket{
		ID:           uuid.New(),
		TicketNumber: "TKT-2025-000007",
		Year:         2025,
		Sequence:     7,
		Title:        "Laptop battery swollen",
		Description:  "Battery bulging under keyboard",
		DueDate:      fixedNow.Add(72 * time.Hour),
		Severity:     severity,
		Status:       status,
		CreatedByID:  creator,
		CreatedAt:    fixedNow.Add(-time.Hour),
		UpdatedAt:    fixedNow.Add(-time.Hour),
	}
}

func historyWithReason(reason string) interface{} {
	return mock.MatchedBy(func(h *domain.TicketHistory) bool {
		return h.Reason == reason
	})
}

func eventOfType(eventType domain.EventType) interface{} {
	return mock.MatchedBy(func(e domain.Event) bool {
		return e.Type == eventType
	})
}

func TestTicketService_CreateTicket(t *testing.T) {
	ctx := context.Background()
	associate := domain.Principal{ID: uuid.New(), Role: domain.RoleAssociate}

	validParams := ports.CreateTicketParams{
		Title:       "Monitor flickers",
		Description: "Second monitor flickers every few seconds",
		DueDate:     "2025-09-01T09:00:00Z",
		Severity:    domain.SeverityMedium,
		Actor:       associate,
	}

	t.Run("success", func(t *testing.T) {
		f := newTicketFixture()

		number := domain.NewTicketNumber(2025, 12)
		f.allocator.On("Allocate", ctx, f.uow, 2025).Return(number, nil)

		var inserted *domain.Ticket
		stored := &domain.Ticket{ID: uuid.New(), TicketNumber: number.Value, Status: domain.StatusDraft, Severity: domain.SeverityMedium, CreatedByID: associate.ID}
		f.uow.TicketRepo.On("Create", ctx, mock.AnythingOfType("*domain.Ticket")).
			Run(func(args mock.Arguments) { inserted = args.Get(1).(*domain.Ticket) }).
			Return(stored, nil)
		f.uow.HistoryRepo.On("Append", ctx, historyWithReason(domain.ReasonCreated)).
			Return(&domain.TicketHistory{ID: 1}, nil)
		f.broadcaster.On("Broadcast", eventOfType(domain.EventTicketCreated)).Return(nil)

		ticket, err := f.svc.CreateTicket(ctx, validParams)

		require.NoError(t, err)
		assert.Equal(t, stored, ticket)
		require.NotNil(t, inserted)
		assert.Equal(t, "TKT-2025-000012", inserted.TicketNumber)
		assert.Equal(t, domain.StatusDraft, inserted.Status)
		assert.Equal(t, associate.ID, inserted.CreatedByID)
		assert.Equal(t, time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC), inserted.DueDate)
		assert.Equal(t, 1, f.tm.Transactions())

		f.allocator.AssertExpectations(t)
		f.uow.TicketRepo.AssertExpectations(t)
		f.uow.HistoryRepo.AssertExpectations(t)
		f.broadcaster.AssertExpectations(t)
	})

	t.Run("invalid due date opens no transaction", func(t *testing.T) {
		f := newTicketFixture()

		params := validParams
		params.DueDate = "not-a-date"

		ticket, err := f.svc.CreateTicket(ctx, params)

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrInvalidDueDate)
		assert.Equal(t, "Invalid dueDate", err.Error())
		assert.Equal(t, 0, f.tm.Transactions())
		f.allocator.AssertNotCalled(t, "Allocate")
	})

	t.Run("missing title", func(t *testing.T) {
		f := newTicketFixture()

		params := validParams
		params.Title = ""

		ticket, err := f.svc.CreateTicket(ctx, params)

		assert.Nil(t, ticket)
		var validationErrs *apperrors.ValidationErrors
		assert.True(t, errors.As(err, &validationErrs))
		f.uow.TicketRepo.AssertNotCalled(t, "Create")
	})

	t.Run("unprovisioned year fails without writes", func(t *testing.T) {
		f := newTicketFixture()

		allocErr := apperrors.NewInternalError(fmt.Errorf("allocate: %w", apperrors.ErrSequenceNotProvisioned))
		f.allocator.On("Allocate", ctx, f.uow, 2025).Return(domain.TicketNumber{}, allocErr)

		ticket, err := f.svc.CreateTicket(ctx, validParams)

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrSequenceNotProvisioned)
		f.uow.TicketRepo.AssertNotCalled(t, "Create")
		f.uow.HistoryRepo.AssertNotCalled(t, "Append")
		f.broadcaster.AssertNotCalled(t, "Broadcast")
	})
}

func TestTicketService_ReviewTicket(t *testing.T) {
	ctx := context.Background()
	associate := domain.Principal{ID: uuid.New(), Role: domain.RoleAssociate}
	manager := domain.Principal{ID: uuid.New(), Role: domain.RoleManager}

	t.Run("approve", func(t *testing.T) {
		f := newTicketFixture()
		ticket := ticketInStatus(associate.ID, domain.StatusDraft, domain.SeverityLow)

		f.uow.TicketRepo.On("GetByIDForUpdate", ctx, ticket.ID).Return(ticket, nil)
		f.uow.TicketRepo.On("Update", ctx, ticket).Return(ticket, nil)
		f.uow.HistoryRepo.On("Append", ctx, historyWithReason(domain.ReasonApproved)).
			Return(&domain.TicketHistory{ID: 2}, nil)
		f.broadcaster.On("Broadcast", eventOfType(domain.EventTicketStatusChanged)).Return(nil)

		updated, err := f.svc.ReviewTicket(ctx, ports.ReviewTicketParams{
			TicketID: ticket.ID,
			Actor:    manager,
			Decision: domain.ReviewDecision{Action: domain.ReviewApprove},
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, updated.Status)
		assert.Equal(t, manager.ID, *updated.ReviewedByID)
		assert.Equal(t, fixedNow, updated.UpdatedAt)
		f.uow.HistoryRepo.AssertExpectations(t)
		f.broadcaster.AssertExpectations(t)
	})

	t.Run("escalation returns to REVIEW", func(t *testing.T) {
		f := newTicketFixture()
		ticket := ticketInStatus(associate.ID, domain.StatusDraft, domain.SeverityLow)
		high := domain.SeverityHigh

		f.uow.TicketRepo.On("GetByIDForUpdate", ctx, ticket.ID).Return(ticket, nil)
		f.uow.TicketRepo.On("Update", ctx, ticket).Return(ticket, nil)
		f.uow.HistoryRepo.On("Append", ctx, historyWithReason("severity changed: affects payroll")).
			Return(&domain.TicketHistory{ID: 3}, nil)
		f.broadcaster.On("Broadcast", mock.Anything).Return(nil)

		updated, err := f.svc.ReviewTicket(ctx, ports.ReviewTicketParams{
			TicketID: ticket.ID,
			Actor:    manager,
			Decision: domain.ReviewDecision{
				Action:      domain.ReviewChangeSeverity,
				NewSeverity: &high,
				Reason:      "affects payroll",
			},
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusReview, updated.Status)
		assert.Equal(t, domain.SeverityHigh, updated.Severity)
	})

	t.Run("self review writes nothing", func(t *testing.T) {
		f := newTicketFixture()
		ticket := ticketInStatus(manager.ID, domain.StatusDraft, domain.SeverityLow)

		f.uow.TicketRepo.On("GetByIDForUpdate", ctx, ticket.ID).Return(ticket, nil)

		updated, err := f.svc.ReviewTicket(ctx, ports.ReviewTicketParams{
			TicketID: ticket.ID,
			Actor:    manager,
			Decision: domain.ReviewDecision{Action: domain.ReviewApprove},
		})

		assert.Nil(t, updated)
		assert.ErrorIs(t, err, apperrors.ErrSelfReview)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Equal(t, "Manager cannot review own ticket", err.Error())
		f.uow.TicketRepo.AssertNotCalled(t, "Update")
		f.uow.HistoryRepo.AssertNotCalled(t, "Append")
		f.broadcaster.AssertNotCalled(t, "Broadcast")
	})

	t.Run("ticket not found", func(t *testing.T) {
		f := newTicketFixture()
		id := uuid.New()

		f.uow.TicketRepo.On("GetByIDForUpdate", ctx, id).Return(nil, apperrors.TicketNotFound())

		updated, err := f.svc.ReviewTicket(ctx, ports.ReviewTicketParams{
			TicketID: id,
			Actor:    manager,
			Decision: domain.ReviewDecision{Action: domain.ReviewApprove},
		})

		assert.Nil(t, updated)
		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
		assert.Equal(t, "Ticket not found", err.Error())
	})

	t.Run("history failure surfaces", func(t *testing.T) {
		f := newTicketFixture()
		ticket := ticketInStatus(associate.ID, domain.StatusDraft, domain.SeverityLow)
		dbErr := errors.New("connection reset")

		f.uow.TicketRepo.On("GetByIDForUpdate", ctx, ticket.ID).Return(ticket, nil)
		f.uow.TicketRepo.On("Update", ctx, ticket).Return(ticket, nil)
		f.uow.HistoryRepo.On("Append", ctx, mock.Anything).Return(nil, dbErr)

		updated, err := f.svc.ReviewTicket(ctx, ports.ReviewTicketParams{
			TicketID: ticket.ID,
			Actor:    manager,
			Decision: domain.ReviewDecision{Action: domain.ReviewApprove},
		})

		assert.Nil(t, updated)
		assert.ErrorIs(t, err, dbErr)
		f.broadcaster.AssertNotCalled(t, "Broadcast")
	})
}

func TestTicketService_EditTicket(t *testing.T) {
	ctx := context.Background()
	associate := domain.Principal{ID: uuid.New(), Role: domain.RoleAssociate}

	t.Run("creator edit", func(t *testing.T) {
		f := newTicketFixture()
		ticket := ticketInStatus(associate.ID, domain.StatusReview, domain.SeverityHigh)
		title := "Laptop battery swollen, do not charge"

		f.uow.TicketRepo.On("GetByIDForUpdate", ctx, ticket.ID).Return(ticket, nil)
		f.uow.TicketRepo.On("Update", ctx, ticket).Return(ticket, nil)
		f.uow.HistoryRepo.On("Append", ctx, historyWithReason(domain.ReasonEdited)).
			Return(&domain.TicketHistory{ID: 4}, nil)
		f.broadcaster.On("Broadcast", eventOfType(domain.EventTicketUpdated)).Return(nil)

		updated, err := f.svc.EditTicket(ctx, ports.EditTicketParams{
			TicketID: ticket.ID,
			Actor:    associate,
			Title:    &title,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusDraft, updated.Status)
		assert.Equal(t, title, updated.Title)
		f.broadcaster.AssertExpectations(t)
	})

	t.Run("other associate", func(t *testing.T) {
		f := newTicketFixture()
		ticket := ticketInStatus(uuid.New(), domain.StatusReview, domain.SeverityHigh)
		title := "x"

		f.uow.TicketRepo.On("GetByIDForUpdate", ctx, ticket.ID).Return(ticket, nil)

		_, err := f.svc.EditTicket(ctx, ports.EditTicketParams{
			TicketID: ticket.ID,
			Actor:    associate,
			Title:    &title,
		})

		assert.ErrorIs(t, err, apperrors.ErrNotCreator)
		f.uow.TicketRepo.AssertNotCalled(t, "Update")
	})
}

func TestTicketService_DeleteTicket(t *testing.T) {
	ctx := context.Background()
	associate := domain.Principal{ID: uuid.New(), Role: domain.RoleAssociate}

	t.Run("draft is tombstoned", func(t *testing.T) {
		f := newTicketFixture()
		ticket := ticketInStatus(associate.ID, domain.StatusDraft, domain.SeverityLow)

		f.uow.TicketRepo.On("GetByIDForUpdate", ctx, ticket.ID).Return(ticket, nil)
		f.uow.TicketRepo.On("Update", ctx, mock.MatchedBy(func(tk *domain.Ticket) bool {
			return tk.DeletedAt != nil
		})).Return(ticket, nil)
		f.uow.HistoryRepo.On("Append", ctx, historyWithReason(domain.ReasonSoftDeleted)).
			Return(&domain.TicketHistory{ID: 5}, nil)
		f.broadcaster.On("Broadcast", eventOfType(domain.EventTicketDeleted)).Return(nil)

		err := f.svc.DeleteTicket(ctx, ports.DeleteTicketParams{TicketID: ticket.ID, Actor: associate})

		require.NoError(t, err)
		f.uow.TicketRepo.AssertExpectations(t)
		f.broadcaster.AssertExpectations(t)
	})

	t.Run("pending is rejected", func(t *testing.T) {
		f := newTicketFixture()
		ticket := ticketInStatus(associate.ID, domain.StatusPending, domain.SeverityLow)

		f.uow.TicketRepo.On("GetByIDForUpdate", ctx, ticket.ID).Return(ticket, nil)

		err := f.svc.DeleteTicket(ctx, ports.DeleteTicketParams{TicketID: ticket.ID, Actor: associate})

		assert.ErrorIs(t, err, apperrors.ErrNotDeletable)
		assert.Equal(t, "Cannot delete ticket with status >= PENDING", err.Error())
		f.uow.TicketRepo.AssertNotCalled(t, "Update")
		f.uow.HistoryRepo.AssertNotCalled(t, "Append")
	})
}

func TestTicketService_ListTickets(t *testing.T) {
	ctx := context.Background()

	t.Run("clamps limit and offset", func(t *testing.T) {
		f := newTicketFixture()

		expected := ports.ListTicketsRepoParams{Limit: services.MaxListLimit, Offset: 0}
		f.uow.TicketRepo.On("List", ctx, expected).Return([]*domain.Ticket{}, int64(0), nil)

		page, err := f.svc.ListTickets(ctx, ports.ListTicketsParams{Limit: 1000, Offset: -5})

		require.NoError(t, err)
		assert.Equal(t, services.MaxListLimit, page.Limit)
		assert.Equal(t, 0, page.Offset)
		f.uow.TicketRepo.AssertExpectations(t)
	})

	t.Run("default limit", func(t *testing.T) {
		f := newTicketFixture()
		status := domain.StatusPending
		tickets := []*domain.Ticket{ticketInStatus(uuid.New(), status, domain.SeverityLow)}

		expected := ports.ListTicketsRepoParams{Status: &status, Limit: services.DefaultListLimit}
		f.uow.TicketRepo.On("List", ctx, expected).Return(tickets, int64(1), nil)

		page, err := f.svc.ListTickets(ctx, ports.ListTicketsParams{Status: &status})

		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
		assert.Len(t, page.Tickets, 1)
	})

	t.Run("unknown status filter", func(t *testing.T) {
		f := newTicketFixture()
		status := domain.TicketStatus("ARCHIVED")

		_, err := f.svc.ListTickets(ctx, ports.ListTicketsParams{Status: &status})

		assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
		f.uow.TicketRepo.AssertNotCalled(t, "List")
	})
}

func TestTicketService_ListHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown ticket", func(t *testing.T) {
		f := newTicketFixture()
		id := uuid.New()

		f.uow.TicketRepo.On("Exists", ctx, id).Return(false, nil)

		history, err := f.svc.ListHistory(ctx, id)

		assert.Nil(t, history)
		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
		f.uow.HistoryRepo.AssertNotCalled(t, "ListByTicketID")
	})

	t.Run("returns entries", func(t *testing.T) {
		f := newTicketFixture()
		id := uuid.New()
		entries := []*domain.TicketHistory{{ID: 2, TicketID: id}, {ID: 1, TicketID: id}}

		f.uow.TicketRepo.On("Exists", ctx, id).Return(true, nil)
		f.uow.HistoryRepo.On("ListByTicketID", ctx, id).Return(entries, nil)

		history, err := f.svc.ListHistory(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, entries, history)
	})
}
