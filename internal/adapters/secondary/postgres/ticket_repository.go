package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lorrc/ticket-workflow/internal/core/domain"
	apperrors "github.com/lorrc/ticket-workflow/internal/core/errors"
	"github.com/lorrc/ticket-workflow/internal/core/ports"
	"github.com/lorrc/ticket-workflow/internal/core/utils"
)

// TicketRepository is the secondary adapter for ticket persistence.
type TicketRepository struct {
	db DBTX
}

// Ensure TicketRepository implements the ports.TicketRepository interface.
var _ ports.TicketRepository = (*TicketRepository)(nil)

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(db DBTX) *TicketRepository {
	return &TicketRepository{db: db}
}

const ticketColumns = `id, ticket_number, year, sequence, title, description, due_date, severity,
	ai_suggested_severity, status, created_by, reviewed_by, created_at, updated_at, deleted_at`

// scanTicket converts a database row to a core domain model.
func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		t          domain.Ticket
		id         pgtype.UUID
		createdBy  pgtype.UUID
		reviewedBy pgtype.UUID
		severity   string
		aiSeverity pgtype.Text
		status     string
		dueDate    pgtype.Timestamptz
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
		deletedAt  pgtype.Timestamptz
	)

	err := row.Scan(
		&id, &t.TicketNumber, &t.Year, &t.Sequence, &t.Title, &t.Description, &dueDate, &severity,
		&aiSeverity, &status, &createdBy, &reviewedBy, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.TicketNotFound()
		}
		return nil, err
	}

	t.ID = id.Bytes
	t.CreatedByID = createdBy.Bytes
	t.ReviewedByID = utils.FromNullUUID(reviewedBy)
	t.Severity = domain.Severity(severity)
	t.AISuggestedSeverity = utils.FromNullEnum[domain.Severity](aiSeverity)
	t.Status = domain.TicketStatus(status)
	t.DueDate = dueDate.Time.UTC()
	t.CreatedAt = createdAt.Time.UTC()
	t.UpdatedAt = updatedAt.Time.UTC()
	t.DeletedAt = utils.FromNullTime(deletedAt)

	return &t, nil
}

func collectTickets(rows pgx.Rows) ([]*domain.Ticket, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Ticket, error) {
		return scanTicket(row)
	})
}

const createTicket = `
INSERT INTO tickets (
	id, ticket_number, year, sequence, title, description, due_date, severity,
	ai_suggested_severity, status, created_by, reviewed_by, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING ` + ticketColumns

// Create persists a new ticket entity.
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	return scanTicket(r.db.QueryRow(ctx, createTicket,
		utils.ToUUID(ticket.ID),
		ticket.TicketNumber,
		ticket.Year,
		ticket.Sequence,
		ticket.Title,
		ticket.Description,
		ticket.DueDate,
		string(ticket.Severity),
		utils.ToNullEnum(ticket.AISuggestedSeverity),
		string(ticket.Status),
		utils.ToUUID(ticket.CreatedByID),
		utils.ToNullUUID(ticket.ReviewedByID),
		ticket.CreatedAt,
		ticket.UpdatedAt,
	))
}

const getTicketByID = `SELECT ` + ticketColumns + `
FROM tickets
WHERE id = $1 AND deleted_at IS NULL`

// GetByID retrieves a single non-deleted ticket by its ID.
func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	return scanTicket(r.db.QueryRow(ctx, getTicketByID, utils.ToUUID(id)))
}

// GetByIDForUpdate retrieves and row-locks a non-deleted ticket.
func (r *TicketRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	return scanTicket(r.db.QueryRow(ctx, getTicketByID+` FOR UPDATE`, utils.ToUUID(id)))
}

const getTicketByNumberForUpdate = `SELECT ` + ticketColumns + `
FROM tickets
WHERE ticket_number = $1 AND deleted_at IS NULL
FOR UPDATE`

// GetByNumberForUpdate retrieves and row-locks a non-deleted ticket by number.
func (r *TicketRepository) GetByNumberForUpdate(ctx context.Context, ticketNumber string) (*domain.Ticket, error) {
	return scanTicket(r.db.QueryRow(ctx, getTicketByNumberForUpdate, ticketNumber))
}

// Exists reports whether a ticket row exists, tombstoned or not.
func (r *TicketRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id = $1)`, utils.ToUUID(id)).Scan(&exists)
	return exists, err
}

const updateTicket = `
UPDATE tickets
SET title = $2,
	description = $3,
	severity = $4,
	status = $5,
	reviewed_by = $6,
	updated_at = $7,
	deleted_at = $8
WHERE id = $1
RETURNING ` + ticketColumns

// Update persists changes to an existing ticket entity.
func (r *TicketRepository) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	return scanTicket(r.db.QueryRow(ctx, updateTicket,
		utils.ToUUID(ticket.ID),
		ticket.Title,
		ticket.Description,
		string(ticket.Severity),
		string(ticket.Status),
		utils.ToNullUUID(ticket.ReviewedByID),
		ticket.UpdatedAt,
		utils.ToNullTime(ticket.DeletedAt),
	))
}

const ticketListFilter = `
WHERE deleted_at IS NULL
	AND ($1::text IS NULL OR status = $1)
	AND ($2::text IS NULL
		OR title ILIKE $2 ESCAPE '\'
		OR description ILIKE $2 ESCAPE '\'
		OR ticket_number ILIKE $2 ESCAPE '\')`

const countTickets = `SELECT count(*) FROM tickets` + ticketListFilter

const listTickets = `SELECT ` + ticketColumns + `
FROM tickets` + ticketListFilter + `
ORDER BY created_at DESC, ticket_number DESC
LIMIT $3 OFFSET $4`

// List retrieves a page of non-deleted tickets, newest first, with the total
// number of matches.
func (r *TicketRepository) List(ctx context.Context, params ports.ListTicketsRepoParams) ([]*domain.Ticket, int64, error) {
	status := utils.ToNullEnum(params.Status)

	var query pgtype.Text
	if params.Query != nil && strings.TrimSpace(*params.Query) != "" {
		query = pgtype.Text{String: "%" + escapeLike(strings.TrimSpace(*params.Query)) + "%", Valid: true}
	}

	var total int64
	if err := r.db.QueryRow(ctx, countTickets, status, query).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, listTickets, status, query, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, err
	}

	tickets, err := collectTickets(rows)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

const listTicketsByStatus = `SELECT ` + ticketColumns + `
FROM tickets
WHERE status = $1 AND deleted_at IS NULL
ORDER BY created_at ASC, ticket_number ASC`

// ListByStatus retrieves every non-deleted ticket in status, oldest first.
func (r *TicketRepository) ListByStatus(ctx context.Context, status domain.TicketStatus) ([]*domain.Ticket, error) {
	rows, err := r.db.Query(ctx, listTicketsByStatus, string(status))
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
