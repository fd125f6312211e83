package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/lorrc/ticket-workflow/internal/core/domain"
	apperrors "github.com/lorrc/ticket-workflow/internal/core/errors"
	"github.com/lorrc/ticket-workflow/internal/core/ports"
)

// SequenceAllocator issues per-year ticket numbers from the sequence table.
type SequenceAllocator struct {
	tm ports.TransactionManager
}

var _ ports.SequenceAllocator = (*SequenceAllocator)(nil)

// NewSequenceAllocator creates a new allocator.
func NewSequenceAllocator(tm ports.TransactionManager) *SequenceAllocator {
	return &SequenceAllocator{tm: tm}
}

// Allocate increments the counter for year. With a nil uow the increment
// commits on its own; otherwise it joins the caller's transaction and is
// rolled back with it.
func (a *SequenceAllocator) Allocate(ctx context.Context, uow ports.UnitOfWork, year int) (domain.TicketNumber, error) {
	if uow != nil {
		return a.allocate(ctx, uow, year)
	}

	var number domain.TicketNumber
	err := a.tm.WithinTransaction(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		var err error
		number, err = a.allocate(ctx, uow, year)
		return err
	})
	if err != nil {
		return domain.TicketNumber{}, err
	}
	return number, nil
}

func (a *SequenceAllocator) allocate(ctx context.Context, uow ports.UnitOfWork, year int) (domain.TicketNumber, error) {
	seq, err := uow.Sequences().Increment(ctx, year)
	if err != nil {
		if errors.Is(err, apperrors.ErrSequenceNotProvisioned) {
			return domain.TicketNumber{}, apperrors.NewInternalError(fmt.Errorf("allocate ticket number for %d: %w", year, err))
		}
		return domain.TicketNumber{}, err
	}
	return domain.NewTicketNumber(year, seq), nil
}
