package domain

import "time"

// TicketSnapshot matches the API response shape for tickets.
type TicketSnapshot struct {
	ID                  string  `json:"id"`
	TicketNumber        string  `json:"ticketNumber"`
	Title               string  `json:"title"`
	Description         string  `json:"description"`
	DueDate             string  `json:"dueDate"`
	Severity            string  `json:"severity"`
	AISuggestedSeverity *string `json:"aiSuggestedSeverity"`
	Status              string  `json:"status"`
	CreatedByID         string  `json:"createdById"`
	ReviewedByID        *string `json:"reviewedById"`
	CreatedAt           string  `json:"createdAt"`
	UpdatedAt           string  `json:"updatedAt"`
}

// HistorySnapshot matches the API response shape for history entries.
type HistorySnapshot struct {
	ID           int64   `json:"id"`
	TicketID     string  `json:"ticketId"`
	UserID       *string `json:"userId"`
	FromStatus   *string `json:"fromStatus"`
	ToStatus     *string `json:"toStatus"`
	FromSeverity *string `json:"fromSeverity"`
	ToSeverity   *string `json:"toSeverity"`
	Reason       string  `json:"reason"`
	CreatedAt    string  `json:"createdAt"`
}

// NewTicketSnapshot builds a ticket snapshot from a domain ticket.
func NewTicketSnapshot(ticket *Ticket) TicketSnapshot {
	var aiSeverity *string
	if ticket.AISuggestedSeverity != nil {
		value := string(*ticket.AISuggestedSeverity)
		aiSeverity = &value
	}

	var reviewedBy *string
	if ticket.ReviewedByID != nil {
		value := ticket.ReviewedByID.String()
		reviewedBy = &value
	}

	return TicketSnapshot{
		ID:                  ticket.ID.String(),
		TicketNumber:        ticket.TicketNumber,
		Title:               ticket.Title,
		Description:         ticket.Description,
		DueDate:             ticket.DueDate.UTC().Format(time.RFC3339),
		Severity:            string(ticket.Severity),
		AISuggestedSeverity: aiSeverity,
		Status:              string(ticket.Status),
		CreatedByID:         ticket.CreatedByID.String(),
		ReviewedByID:        reviewedBy,
		CreatedAt:           ticket.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:           ticket.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// NewHistorySnapshot builds a history snapshot from a domain history entry.
func NewHistorySnapshot(h *TicketHistory) HistorySnapshot {
	snapshot := HistorySnapshot{
		ID:        h.ID,
		TicketID:  h.TicketID.String(),
		Reason:    h.Reason,
		CreatedAt: h.CreatedAt.UTC().Format(time.RFC3339),
	}
	if h.UserID != nil {
		value := h.UserID.String()
		snapshot.UserID = &value
	}
	snapshot.FromStatus = optionalString(h.FromStatus)
	snapshot.ToStatus = optionalString(h.ToStatus)
	snapshot.FromSeverity = optionalString(h.FromSeverity)
	snapshot.ToSeverity = optionalString(h.ToSeverity)
	return snapshot
}

func optionalString[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	value := string(*v)
	return &value
}
