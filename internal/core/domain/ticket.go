package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/ticket-workflow/internal/core/errors"
)

// Validation constants
const (
	MaxTitleLength = 200

	ticketNumberPrefix = "TKT"
)

// TicketNumber is the human readable identifier TKT-<year>-<6-digit-seq>.
type TicketNumber struct {
	Year     int
	Sequence int64
	Value    string
}

// NewTicketNumber formats an allocated sequence value for a year.
func NewTicketNumber(year int, sequence int64) TicketNumber {
	return TicketNumber{
		Year:     year,
		Sequence: sequence,
		Value:    fmt.Sprintf("%s-%d-%06d", ticketNumberPrefix, year, sequence),
	}
}

// Ticket is the core domain entity.
type Ticket struct {
	ID                  uuid.UUID
	TicketNumber        string
	Year                int
	Sequence            int64
	Title               string
	Description         string
	DueDate             time.Time
	Severity            Severity
	AISuggestedSeverity *Severity
	Status              TicketStatus
	CreatedByID         uuid.UUID
	ReviewedByID        *uuid.UUID
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           *time.Time
}

// TicketParams holds the raw input for creating a ticket.
type TicketParams struct {
	Title               string
	Description         string
	DueDate             string
	Severity            Severity
	AISuggestedSeverity *Severity
	CreatedByID         uuid.UUID
}

// Validate checks the creation input and returns the parsed due date.
func (p TicketParams) Validate() (time.Time, error) {
	errs := apperrors.NewValidationErrors()

	if strings.TrimSpace(p.Title) == "" {
		errs.Add("title", "Title is required")
	} else if utf8.RuneCountInString(p.Title) > MaxTitleLength {
		errs.Add("title", fmt.Sprintf("Title must be %d characters or less", MaxTitleLength))
	}

	if strings.TrimSpace(p.Description) == "" {
		errs.Add("description", "Description is required")
	}

	if !p.Severity.IsValid() {
		errs.Add("severity", "Severity must be one of EASY, LOW, MEDIUM, HIGH, VERY_HIGH")
	}

	if p.AISuggestedSeverity != nil && !p.AISuggestedSeverity.IsValid() {
		errs.Add("aiSuggestedSeverity", "Severity must be one of EASY, LOW, MEDIUM, HIGH, VERY_HIGH")
	}

	if p.CreatedByID == uuid.Nil {
		errs.Add("createdById", apperrors.ErrCreatorRequired.Error())
	}

	if errs.HasErrors() {
		return time.Time{}, errs
	}

	due, err := ParseDueDate(p.DueDate)
	if err != nil {
		return time.Time{}, err
	}
	return due, nil
}

var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDueDate accepts an ISO-8601 timestamp or a plain calendar date.
func ParseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dueDateLayouts {
		if due, err := time.Parse(layout, raw); err == nil {
			return due.UTC(), nil
		}
	}
	return time.Time{}, apperrors.NewBadRequestError(apperrors.ErrInvalidDueDate, "Invalid dueDate")
}

// NewTicket builds a DRAFT ticket from validated params and an allocated number.
func NewTicket(params TicketParams, dueDate time.Time, number TicketNumber, now time.Time) *Ticket {
	return &Ticket{
		ID:                  uuid.New(),
		TicketNumber:        number.Value,
		Year:                number.Year,
		Sequence:            number.Sequence,
		Title:               params.Title,
		Description:         params.Description,
		DueDate:             dueDate,
		Severity:            params.Severity,
		AISuggestedSeverity: params.AISuggestedSeverity,
		Status:              StatusDraft,
		CreatedByID:         params.CreatedByID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// CreationHistory is the audit entry written alongside the initial insert.
func (t *Ticket) CreationHistory() *TicketHistory {
	return newHistory(t.ID, uuidPtr(t.CreatedByID), ReasonCreated).
		withStatus(nil, StatusDraft).
		withSeverity(nil, t.Severity)
}

// IsDeleted reports whether the ticket carries a tombstone.
func (t *Ticket) IsDeleted() bool {
	return t.DeletedAt != nil
}

// ReviewAction is the manager decision on a DRAFT ticket.
type ReviewAction string

const (
	ReviewApprove        ReviewAction = "APPROVE"
	ReviewChangeSeverity ReviewAction = "CHANGE_SEVERITY"
)

// ReviewDecision carries a manager's review input.
type ReviewDecision struct {
	Action      ReviewAction
	NewSeverity *Severity
	Reason      string
}

// Review applies a manager decision to a DRAFT ticket. Approving moves it to
// PENDING. Changing severity moves it to PENDING when the rank holds or
// drops, and back to REVIEW when it rises.
func (t *Ticket) Review(actor Principal, decision ReviewDecision, now time.Time) (*TicketHistory, error) {
	if !actor.IsManager() {
		return nil, apperrors.NewForbiddenError(apperrors.ErrNotManager, "Only managers can review tickets")
	}
	if t.Status != StatusDraft {
		return nil, apperrors.NewBadRequestError(apperrors.ErrNotDraft, "Only DRAFT tickets can be reviewed")
	}
	if t.CreatedByID == actor.ID {
		return nil, apperrors.NewForbiddenError(apperrors.ErrSelfReview, "Manager cannot review own ticket")
	}

	switch decision.Action {
	case ReviewApprove:
		return t.approve(actor, now), nil
	case ReviewChangeSeverity:
		return t.changeSeverity(actor, decision, now)
	default:
		return nil, apperrors.NewBadRequestError(apperrors.ErrUnsupportedAction, "Unsupported action")
	}
}

func (t *Ticket) approve(actor Principal, now time.Time) *TicketHistory {
	t.Status = StatusPending
	t.ReviewedByID = uuidPtr(actor.ID)
	t.UpdatedAt = now

	return newHistory(t.ID, uuidPtr(actor.ID), ReasonApproved).
		withStatus(statusPtr(StatusDraft), StatusPending)
}

func (t *Ticket) changeSeverity(actor Principal, decision ReviewDecision, now time.Time) (*TicketHistory, error) {
	if decision.NewSeverity == nil {
		return nil, apperrors.NewBadRequestError(apperrors.ErrSeverityRequired, "newSeverity is required")
	}
	if !decision.NewSeverity.IsValid() {
		return nil, apperrors.NewBadRequestError(apperrors.ErrInvalidSeverity, "newSeverity is invalid")
	}
	reason := strings.TrimSpace(decision.Reason)
	if reason == "" {
		return nil, apperrors.NewBadRequestError(apperrors.ErrSeverityReasonRequired, "severityChangeReason is required")
	}

	from := t.Severity
	to := *decision.NewSeverity

	next := StatusPending
	if to.Escalates(from) {
		next = StatusReview
	}

	t.Severity = to
	t.Status = next
	t.ReviewedByID = uuidPtr(actor.ID)
	t.UpdatedAt = now

	return newHistory(t.ID, uuidPtr(actor.ID), severityChangedPrefix+reason).
		withStatus(statusPtr(StatusDraft), next).
		withSeverity(severityPtr(from), to), nil
}

// TicketEdit holds optional title/description replacements.
type TicketEdit struct {
	Title       *string
	Description *string
}

// EditInReview lets the creator revise a ticket sent back to REVIEW. The
// ticket returns to DRAFT for another manager pass.
func (t *Ticket) EditInReview(actor Principal, edit TicketEdit, now time.Time) (*TicketHistory, error) {
	if t.Status != StatusReview {
		return nil, apperrors.NewBadRequestError(apperrors.ErrNotInReview, "Only tickets in REVIEW can be edited by associate")
	}
	if t.CreatedByID != actor.ID {
		return nil, apperrors.NewForbiddenError(apperrors.ErrNotCreator, "Only the original associate can edit")
	}

	if edit.Title != nil {
		title := *edit.Title
		if strings.TrimSpace(title) == "" {
			return nil, apperrors.NewBadRequestError(apperrors.ErrTitleRequired, "title must not be empty")
		}
		if utf8.RuneCountInString(title) > MaxTitleLength {
			return nil, apperrors.NewBadRequestError(apperrors.ErrTitleTooLong, "title must be 200 characters or less")
		}
		t.Title = title
	}
	if edit.Description != nil {
		t.Description = *edit.Description
	}

	t.Status = StatusDraft
	t.UpdatedAt = now

	return newHistory(t.ID, uuidPtr(actor.ID), ReasonEdited).
		withStatus(statusPtr(StatusReview), StatusDraft), nil
}

// SoftDelete tombstones a ticket that has not reached PENDING.
func (t *Ticket) SoftDelete(actor Principal, now time.Time) (*TicketHistory, error) {
	if t.IsDeleted() {
		return nil, apperrors.TicketNotFound()
	}
	if !t.Status.IsBefore(StatusPending) {
		return nil, apperrors.NewBadRequestError(apperrors.ErrNotDeletable, "Cannot delete ticket with status >= PENDING")
	}

	deletedAt := now
	t.DeletedAt = &deletedAt
	t.UpdatedAt = now

	return newHistory(t.ID, uuidPtr(actor.ID), ReasonSoftDeleted).
		withStatus(statusPtr(t.Status), t.Status), nil
}

// ApplyImportedStatus sets a status coming from a CSV import. It reports
// false without error when the ticket already has the target status.
func (t *Ticket) ApplyImportedStatus(target TicketStatus, actorID *uuid.UUID, now time.Time) (*TicketHistory, bool, error) {
	if !target.IsImportable() {
		return nil, false, apperrors.NewBadRequestError(apperrors.ErrInvalidStatus, "status must be one of PENDING, OPEN, CLOSED")
	}
	if t.Status == target {
		return nil, false, nil
	}
	if !t.Status.IsImportable() {
		return nil, false, apperrors.NewBadRequestError(apperrors.ErrStatusNotImportable, "Only PENDING, OPEN or CLOSED tickets can be updated by import")
	}

	from := t.Status
	t.Status = target
	t.UpdatedAt = now

	return newHistory(t.ID, actorID, ReasonCSVImport).
		withStatus(statusPtr(from), target), true, nil
}
