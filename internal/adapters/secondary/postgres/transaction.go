package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/ticket-workflow/internal/core/ports"
)

// TransactionManager handles database transactions
type TransactionManager struct {
	pool *pgxpool.Pool
}

var _ ports.TransactionManager = (*TransactionManager)(nil)

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(pool *pgxpool.Pool) *TransactionManager {
	return &TransactionManager{pool: pool}
}

// WithinTransaction executes fn with repositories bound to one transaction.
// If fn returns an error, the transaction is rolled back.
// If fn succeeds, the transaction is committed.
func (tm *TransactionManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow ports.UnitOfWork) error) error {
	tx, err := tm.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			// Rollback on panic
			_ = tx.Rollback(ctx)
			panic(p) // Re-throw panic after rollback
		}
	}()

	if err := fn(ctx, NewUnitOfWork(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx failed: %v, rollback failed: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Pooled returns repositories that run each statement on a pooled connection.
func (tm *TransactionManager) Pooled() ports.UnitOfWork {
	return NewUnitOfWork(tm.pool)
}

// DBTX is an interface that matches both *pgxpool.Pool and pgx.Tx
// This allows repositories to work with either a pool or a transaction
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// UnitOfWork binds the repositories to a single DBTX.
type UnitOfWork struct {
	tickets   *TicketRepository
	history   *HistoryRepository
	sequences *SequenceRepository
}

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// NewUnitOfWork creates repositories sharing db.
func NewUnitOfWork(db DBTX) *UnitOfWork {
	return &UnitOfWork{
		tickets:   NewTicketRepository(db),
		history:   NewHistoryRepository(db),
		sequences: NewSequenceRepository(db),
	}
}

func (u *UnitOfWork) Tickets() ports.TicketRepository     { return u.tickets }
func (u *UnitOfWork) History() ports.HistoryRepository    { return u.history }
func (u *UnitOfWork) Sequences() ports.SequenceRepository { return u.sequences }
