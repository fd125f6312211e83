package services

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lorrc/ticket-workflow/internal/core/domain"
	apperrors "github.com/lorrc/ticket-workflow/internal/core/errors"
	"github.com/lorrc/ticket-workflow/internal/core/ports"
)

// DefaultImportConcurrency bounds the number of rows imported at once.
const DefaultImportConcurrency = 4

// CSVService exports PENDING tickets, simulates an external processor and
// imports status updates back.
type CSVService struct {
	tm          ports.TransactionManager
	broadcaster ports.EventBroadcaster
	concurrency int
	opts        options
}

var _ ports.CSVService = (*CSVService)(nil)

// NewCSVService creates a new CSV service. A concurrency below one falls
// back to DefaultImportConcurrency.
func NewCSVService(
	tm ports.TransactionManager,
	broadcaster ports.EventBroadcaster,
	concurrency int,
	opts ...Option,
) *CSVService {
	if concurrency < 1 {
		concurrency = DefaultImportConcurrency
	}
	return &CSVService{
		tm:          tm,
		broadcaster: broadcaster,
		concurrency: concurrency,
		opts:        applyOptions(opts),
	}
}

// ExportPending serializes every non-deleted PENDING ticket, oldest first.
// It performs no writes.
func (s *CSVService) ExportPending(ctx context.Context) (*domain.CSVFile, error) {
	tickets, err := s.tm.Pooled().Tickets().ListByStatus(ctx, domain.StatusPending)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, len(tickets))
	for i, ticket := range tickets {
		rows[i] = domain.NewTicketCSVRow(ticket).Record()
	}

	content, err := writeCSV(domain.CSVColumns, rows)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	return &domain.CSVFile{
		Filename: "pending_tickets_" + domain.CSVTimestamp(s.opts.clock()) + ".csv",
		Content:  content,
		Rows:     len(rows),
	}, nil
}

// AutoProcess reassigns statuses the way an external processor would: a
// random third of the rows become OPEN, another third CLOSED and the rest
// PENDING. Row order and every other column are preserved.
func (s *CSVService) AutoProcess(ctx context.Context, content io.Reader) (*domain.CSVFile, error) {
	table, err := readCSV(content)
	if err != nil {
		return nil, err
	}
	if len(table.rows) == 0 {
		return nil, apperrors.InvalidCSV(errors.New("no data rows"))
	}

	statusCol := table.ensureColumn("status")

	n := len(table.rows)
	third := n / 3
	for pos, rowIdx := range rand.Perm(n) {
		status := domain.StatusPending
		switch {
		case pos < third:
			status = domain.StatusOpen
		case pos < 2*third:
			status = domain.StatusClosed
		}
		table.rows[rowIdx][statusCol] = string(status)
	}

	out, err := writeCSV(table.header, table.rows)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	return &domain.CSVFile{
		Filename: "processed_" + domain.CSVTimestamp(s.opts.clock()) + ".csv",
		Content:  out,
		Rows:     n,
	}, nil
}

// importRow is the outcome of one CSV row.
type importRow struct {
	updated    *domain.Ticket
	skipReason string
}

// Import applies the status column to the referenced tickets. Rows run
// concurrently up to the configured bound, each in its own transaction, and
// a failing row never aborts its siblings.
func (s *CSVService) Import(ctx context.Context, content io.Reader, actorID *uuid.UUID) (*domain.ImportResult, error) {
	table, err := readCSV(content)
	if err != nil {
		return nil, err
	}
	if len(table.rows) == 0 {
		return nil, apperrors.InvalidCSV(errors.New("no data rows"))
	}
	if !table.has("status") {
		return nil, apperrors.InvalidCSV(errors.New("missing status column"))
	}
	if !table.has("id") && !table.has("ticket_number") {
		return nil, apperrors.InvalidCSV(errors.New("missing id or ticket_number column"))
	}

	var (
		updated atomic.Int64
		skipped atomic.Int64
		failed  atomic.Int64
		mu      sync.Mutex
		reasons = map[string]int{}
	)

	skip := func(reason string) {
		skipped.Add(1)
		mu.Lock()
		reasons[reason]++
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, row := range table.rows {
		g.Go(func() error {
			target, ok := domain.ParseImportStatus(table.value(row, "status"))
			if !ok {
				skip(domain.SkipInvalidStatus)
				return nil
			}

			outcome, err := s.importRow(ctx, table.value(row, "id"), table.value(row, "ticket_number"), target, actorID)
			if err != nil {
				failed.Add(1)
				skip(domain.SkipError)
				s.opts.logger.Warn("csv import row failed",
					"row", i+1,
					"id", table.value(row, "id"),
					"ticket_number", table.value(row, "ticket_number"),
					"error", err,
				)
				return nil
			}

			if outcome.skipReason != "" {
				skip(outcome.skipReason)
				return nil
			}

			updated.Add(1)
			s.broadcast(outcome.updated)
			return nil
		})
	}
	_ = g.Wait()

	return &domain.ImportResult{
		UpdatedCount: int(updated.Load()),
		SkippedCount: int(skipped.Load()),
		TotalRows:    len(table.rows),
		FailedCount:  int(failed.Load()),
		SkipReasons:  reasons,
	}, nil
}

func (s *CSVService) importRow(
	ctx context.Context,
	rawID, ticketNumber string,
	target domain.TicketStatus,
	actorID *uuid.UUID,
) (importRow, error) {
	var outcome importRow

	err := s.tm.WithinTransaction(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		ticket, err := resolveTicket(ctx, uow.Tickets(), rawID, ticketNumber)
		if err != nil {
			return err
		}
		if ticket == nil {
			outcome.skipReason = domain.SkipNotFound
			return nil
		}

		entry, changed, err := ticket.ApplyImportedStatus(target, actorID, s.opts.clock())
		switch {
		case errors.Is(err, apperrors.ErrStatusNotImportable):
			outcome.skipReason = domain.SkipIneligibleStatus
			return nil
		case err != nil:
			return err
		case !changed:
			outcome.skipReason = domain.SkipSameStatus
			return nil
		}

		outcome.updated, err = uow.Tickets().Update(ctx, ticket)
		if err != nil {
			return err
		}

		_, err = uow.History().Append(ctx, entry)
		return err
	})

	return outcome, err
}

// resolveTicket looks a row up by id, then by ticket number. It returns nil
// without error when neither matches a non-deleted ticket.
func resolveTicket(ctx context.Context, repo ports.TicketRepository, rawID, ticketNumber string) (*domain.Ticket, error) {
	if id, err := uuid.Parse(rawID); err == nil {
		ticket, err := repo.GetByIDForUpdate(ctx, id)
		switch {
		case err == nil:
			return ticket, nil
		case !errors.Is(err, apperrors.ErrTicketNotFound):
			return nil, err
		}
	}

	if ticketNumber != "" {
		ticket, err := repo.GetByNumberForUpdate(ctx, ticketNumber)
		switch {
		case err == nil:
			return ticket, nil
		case !errors.Is(err, apperrors.ErrTicketNotFound):
			return nil, err
		}
	}

	return nil, nil
}

func (s *CSVService) broadcast(ticket *domain.Ticket) {
	if s.broadcaster == nil || ticket == nil {
		return
	}
	if err := s.broadcaster.Broadcast(domain.NewTicketEvent(domain.EventTicketStatusChanged, ticket)); err != nil {
		s.opts.logger.Warn("failed to broadcast ticket event",
			"ticket_id", ticket.ID,
			"error", err,
		)
	}
}
