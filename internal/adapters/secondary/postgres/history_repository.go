package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lorrc/ticket-workflow/internal/core/domain"
	"github.com/lorrc/ticket-workflow/internal/core/ports"
	"github.com/lorrc/ticket-workflow/internal/core/utils"
)

// HistoryRepository handles persistence for the ticket audit trail.
type HistoryRepository struct {
	db DBTX
}

var _ ports.HistoryRepository = (*HistoryRepository)(nil)

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(db DBTX) *HistoryRepository {
	return &HistoryRepository{db: db}
}

const appendHistory = `
INSERT INTO ticket_history (ticket_id, user_id, from_status, to_status, from_severity, to_severity, reason)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at`

// Append persists a new history entry.
func (r *HistoryRepository) Append(ctx context.Context, entry *domain.TicketHistory) (*domain.TicketHistory, error) {
	var createdAt pgtype.Timestamptz

	stored := *entry
	err := r.db.QueryRow(ctx, appendHistory,
		utils.ToUUID(entry.TicketID),
		utils.ToNullUUID(entry.UserID),
		utils.ToNullEnum(entry.FromStatus),
		utils.ToNullEnum(entry.ToStatus),
		utils.ToNullEnum(entry.FromSeverity),
		utils.ToNullEnum(entry.ToSeverity),
		entry.Reason,
	).Scan(&stored.ID, &createdAt)
	if err != nil {
		return nil, err
	}

	stored.CreatedAt = createdAt.Time.UTC()
	return &stored, nil
}

const listHistoryByTicket = `
SELECT id, ticket_id, user_id, from_status, to_status, from_severity, to_severity, reason, created_at
FROM ticket_history
WHERE ticket_id = $1
ORDER BY id DESC`

// ListByTicketID retrieves the history of a ticket, newest first.
func (r *HistoryRepository) ListByTicketID(ctx context.Context, ticketID uuid.UUID) ([]*domain.TicketHistory, error) {
	rows, err := r.db.Query(ctx, listHistoryByTicket, utils.ToUUID(ticketID))
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.TicketHistory, error) {
		var (
			h            domain.TicketHistory
			ticket, user pgtype.UUID
			fromStatus   pgtype.Text
			toStatus     pgtype.Text
			fromSeverity pgtype.Text
			toSeverity   pgtype.Text
			createdAt    pgtype.Timestamptz
		)
		if err := row.Scan(&h.ID, &ticket, &user, &fromStatus, &toStatus, &fromSeverity, &toSeverity, &h.Reason, &createdAt); err != nil {
			return nil, err
		}

		h.TicketID = ticket.Bytes
		h.UserID = utils.FromNullUUID(user)
		h.FromStatus = utils.FromNullEnum[domain.TicketStatus](fromStatus)
		h.ToStatus = utils.FromNullEnum[domain.TicketStatus](toStatus)
		h.FromSeverity = utils.FromNullEnum[domain.Severity](fromSeverity)
		h.ToSeverity = utils.FromNullEnum[domain.Severity](toSeverity)
		h.CreatedAt = createdAt.Time.UTC()
		return &h, nil
	})
}
