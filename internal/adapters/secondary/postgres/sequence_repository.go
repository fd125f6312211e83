package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	apperrors "github.com/lorrc/ticket-workflow/internal/core/errors"
	"github.com/lorrc/ticket-workflow/internal/core/ports"
)

// SequenceRepository is the secondary adapter for per-year ticket counters.
type SequenceRepository struct {
	db DBTX
}

var _ ports.SequenceRepository = (*SequenceRepository)(nil)

// NewSequenceRepository creates a new sequence repository.
func NewSequenceRepository(db DBTX) *SequenceRepository {
	return &SequenceRepository{db: db}
}

const incrementSequence = `
UPDATE ticket_sequences
SET last_value = last_value + 1
WHERE year = $1
RETURNING last_value`

// Increment bumps the counter in a single statement so concurrent callers
// are serialized by the row lock.
func (r *SequenceRepository) Increment(ctx context.Context, year int) (int64, error) {
	var value int64
	err := r.db.QueryRow(ctx, incrementSequence, year).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: %d", apperrors.ErrSequenceNotProvisioned, year)
		}
		return 0, err
	}
	return value, nil
}

const provisionSequence = `
INSERT INTO ticket_sequences (year, last_value)
VALUES ($1, 0)
ON CONFLICT (year) DO NOTHING`

// Provision creates the counter row for year if it does not exist yet.
func (r *SequenceRepository) Provision(ctx context.Context, year int) error {
	_, err := r.db.Exec(ctx, provisionSequence, year)
	return err
}
