package domain

import (
	"time"

	"github.com/google/uuid"
)

// History reasons written by the lifecycle and the importer.
const (
	ReasonCreated     = "created"
	ReasonApproved    = "approved"
	ReasonEdited      = "associate edited (title/description)"
	ReasonSoftDeleted = "soft deleted"
	ReasonCSVImport   = "csv import"

	severityChangedPrefix = "severity changed: "
)

// TicketHistory is an immutable audit entry for one accepted transition.
// A nil UserID marks an external actor such as the scheduled job.
type TicketHistory struct {
	ID           int64
	TicketID     uuid.UUID
	UserID       *uuid.UUID
	FromStatus   *TicketStatus
	ToStatus     *TicketStatus
	FromSeverity *Severity
	ToSeverity   *Severity
	Reason       string
	CreatedAt    time.Time
}

func newHistory(ticketID uuid.UUID, userID *uuid.UUID, reason string) *TicketHistory {
	return &TicketHistory{
		TicketID: ticketID,
		UserID:   userID,
		Reason:   reason,
	}
}

func (h *TicketHistory) withStatus(from *TicketStatus, to TicketStatus) *TicketHistory {
	h.FromStatus = from
	h.ToStatus = &to
	return h
}

func (h *TicketHistory) withSeverity(from *Severity, to Severity) *TicketHistory {
	h.FromSeverity = from
	h.ToSeverity = &to
	return h
}

func statusPtr(s TicketStatus) *TicketStatus { return &s }

func severityPtr(s Severity) *Severity { return &s }

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }
