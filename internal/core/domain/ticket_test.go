package domain_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/ticket-workflow/internal/core/domain"
	apperrors "github.com/lorrc/ticket-workflow/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

func severity(s domain.Severity) *domain.Severity { return &s }

func strPtr(s string) *string { return &s }

func newDraft(t *testing.T, creator uuid.UUID, sev domain.Severity) *domain.Ticket {
	t.Helper()
	params := domain.TicketParams{
		Title:       "Printer on fire",
		Description: "Third floor printer is smoking",
		DueDate:     "2025-09-01T00:00:00Z",
		Severity:    sev,
		CreatedByID: creator,
	}
	due, err := params.Validate()
	require.NoError(t, err)
	return domain.NewTicket(params, due, domain.NewTicketNumber(2025, 1), now)
}

func TestTicketStatus_Order(t *testing.T) {
	tests := []struct {
		name string
		a, b domain.TicketStatus
		want bool
	}{
		{"DRAFT before PENDING", domain.StatusDraft, domain.StatusPending, true},
		{"REVIEW before PENDING", domain.StatusReview, domain.StatusPending, true},
		{"PENDING not before PENDING", domain.StatusPending, domain.StatusPending, false},
		{"CLOSED not before PENDING", domain.StatusClosed, domain.StatusPending, false},
		{"unknown is never before", domain.TicketStatus("ARCHIVED"), domain.StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.IsBefore(tt.b))
		})
	}
}

func TestParseImportStatus(t *testing.T) {
	tests := []struct {
		raw    string
		want   domain.TicketStatus
		wantOK bool
	}{
		{"OPEN", domain.StatusOpen, true},
		{"  closed ", domain.StatusClosed, true},
		{"Pending", domain.StatusPending, true},
		{"DRAFT", "", false},
		{"REVIEW", "", false},
		{"", "", false},
		{"done", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := domain.ParseImportStatus(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSeverity_Escalates(t *testing.T) {
	assert.True(t, domain.SeverityHigh.Escalates(domain.SeverityLow))
	assert.False(t, domain.SeverityLow.Escalates(domain.SeverityHigh))
	assert.False(t, domain.SeverityMedium.Escalates(domain.SeverityMedium))
	assert.True(t, domain.SeverityVeryHigh.Escalates(domain.SeverityEasy))
}

func TestNewTicketNumber(t *testing.T) {
	n := domain.NewTicketNumber(2025, 42)
	assert.Equal(t, "TKT-2025-000042", n.Value)
	assert.Equal(t, 2025, n.Year)
	assert.Equal(t, int64(42), n.Sequence)
}

func TestTicketParams_Validate(t *testing.T) {
	creator := uuid.New()

	t.Run("valid", func(t *testing.T) {
		params := domain.TicketParams{
			Title:       "VPN down",
			Description: "Cannot connect",
			DueDate:     "2025-09-01",
			Severity:    domain.SeverityMedium,
			CreatedByID: creator,
		}
		due, err := params.Validate()
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), due)
	})

	t.Run("title limit counts characters", func(t *testing.T) {
		params := domain.TicketParams{
			Title:       strings.Repeat("é", domain.MaxTitleLength),
			Description: "Cannot connect",
			DueDate:     "2025-09-01",
			Severity:    domain.SeverityLow,
			CreatedByID: creator,
		}
		_, err := params.Validate()
		require.NoError(t, err)

		params.Title += "é"
		_, err = params.Validate()
		require.Error(t, err)
	})

	t.Run("field errors", func(t *testing.T) {
		params := domain.TicketParams{
			Title:       strings.Repeat("a", domain.MaxTitleLength+1),
			Description: "  ",
			DueDate:     "2025-09-01",
			Severity:    domain.Severity("CRITICAL"),
		}
		_, err := params.Validate()
		require.Error(t, err)

		var validationErrs *apperrors.ValidationErrors
		require.True(t, errors.As(err, &validationErrs))
		assert.Contains(t, validationErrs.Errors, "title")
		assert.Contains(t, validationErrs.Errors, "description")
		assert.Contains(t, validationErrs.Errors, "severity")
		assert.Contains(t, validationErrs.Errors, "createdById")
	})

	t.Run("invalid due date", func(t *testing.T) {
		params := domain.TicketParams{
			Title:       "VPN down",
			Description: "Cannot connect",
			DueDate:     "next tuesday",
			Severity:    domain.SeverityLow,
			CreatedByID: creator,
		}
		_, err := params.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInvalidDueDate)
		assert.Equal(t, "Invalid dueDate", err.Error())
	})
}

func TestTicket_CreationHistory(t *testing.T) {
	creator := uuid.New()
	ticket := newDraft(t, creator, domain.SeverityMedium)

	assert.Equal(t, domain.StatusDraft, ticket.Status)
	assert.Equal(t, "TKT-2025-000001", ticket.TicketNumber)

	h := ticket.CreationHistory()
	assert.Equal(t, ticket.ID, h.TicketID)
	assert.Equal(t, creator, *h.UserID)
	assert.Nil(t, h.FromStatus)
	assert.Equal(t, domain.StatusDraft, *h.ToStatus)
	assert.Nil(t, h.FromSeverity)
	assert.Equal(t, domain.SeverityMedium, *h.ToSeverity)
	assert.Equal(t, domain.ReasonCreated, h.Reason)
}

func TestTicket_Review(t *testing.T) {
	associate := domain.Principal{ID: uuid.New(), Role: domain.RoleAssociate}
	manager := domain.Principal{ID: uuid.New(), Role: domain.RoleManager}

	t.Run("approve moves to PENDING", func(t *testing.T) {
		ticket := newDraft(t, associate.ID, domain.SeverityLow)

		h, err := ticket.Review(manager, domain.ReviewDecision{Action: domain.ReviewApprove}, now)
		require.NoError(t, err)

		assert.Equal(t, domain.StatusPending, ticket.Status)
		assert.Equal(t, manager.ID, *ticket.ReviewedByID)
		assert.Equal(t, domain.StatusDraft, *h.FromStatus)
		assert.Equal(t, domain.StatusPending, *h.ToStatus)
		assert.Equal(t, domain.ReasonApproved, h.Reason)
	})

	t.Run("escalation sends back to REVIEW", func(t *testing.T) {
		ticket := newDraft(t, associate.ID, domain.SeverityLow)

		h, err := ticket.Review(manager, domain.ReviewDecision{
			Action:      domain.ReviewChangeSeverity,
			NewSeverity: severity(domain.SeverityHigh),
			Reason:      "customer facing",
		}, now)
		require.NoError(t, err)

		assert.Equal(t, domain.StatusReview, ticket.Status)
		assert.Equal(t, domain.SeverityHigh, ticket.Severity)
		assert.Equal(t, domain.SeverityLow, *h.FromSeverity)
		assert.Equal(t, domain.SeverityHigh, *h.ToSeverity)
		assert.Equal(t, "severity changed: customer facing", h.Reason)
	})

	t.Run("lowering goes to PENDING", func(t *testing.T) {
		ticket := newDraft(t, associate.ID, domain.SeverityHigh)

		_, err := ticket.Review(manager, domain.ReviewDecision{
			Action:      domain.ReviewChangeSeverity,
			NewSeverity: severity(domain.SeverityLow),
			Reason:      "cosmetic",
		}, now)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, ticket.Status)
	})

	t.Run("holding severity goes to PENDING", func(t *testing.T) {
		ticket := newDraft(t, associate.ID, domain.SeverityMedium)

		_, err := ticket.Review(manager, domain.ReviewDecision{
			Action:      domain.ReviewChangeSeverity,
			NewSeverity: severity(domain.SeverityMedium),
			Reason:      "confirmed",
		}, now)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, ticket.Status)
	})

	rejections := []struct {
		name     string
		actor    domain.Principal
		creator  uuid.UUID
		status   domain.TicketStatus
		decision domain.ReviewDecision
		wantErr  error
		wantMsg  string
	}{
		{
			name:     "associate cannot review",
			actor:    associate,
			creator:  uuid.New(),
			status:   domain.StatusDraft,
			decision: domain.ReviewDecision{Action: domain.ReviewApprove},
			wantErr:  apperrors.ErrNotManager,
			wantMsg:  "Only managers can review tickets",
		},
		{
			name:     "not draft",
			actor:    manager,
			creator:  associate.ID,
			status:   domain.StatusReview,
			decision: domain.ReviewDecision{Action: domain.ReviewApprove},
			wantErr:  apperrors.ErrNotDraft,
			wantMsg:  "Only DRAFT tickets can be reviewed",
		},
		{
			name:     "self review",
			actor:    manager,
			creator:  manager.ID,
			status:   domain.StatusDraft,
			decision: domain.ReviewDecision{Action: domain.ReviewApprove},
			wantErr:  apperrors.ErrSelfReview,
			wantMsg:  "Manager cannot review own ticket",
		},
		{
			name:     "self severity change",
			actor:    manager,
			creator:  manager.ID,
			status:   domain.StatusDraft,
			decision: domain.ReviewDecision{Action: domain.ReviewChangeSeverity, NewSeverity: severity(domain.SeverityHigh), Reason: "x"},
			wantErr:  apperrors.ErrSelfReview,
			wantMsg:  "Manager cannot review own ticket",
		},
		{
			name:     "missing severity",
			actor:    manager,
			creator:  associate.ID,
			status:   domain.StatusDraft,
			decision: domain.ReviewDecision{Action: domain.ReviewChangeSeverity, Reason: "x"},
			wantErr:  apperrors.ErrSeverityRequired,
			wantMsg:  "newSeverity is required",
		},
		{
			name:     "blank reason",
			actor:    manager,
			creator:  associate.ID,
			status:   domain.StatusDraft,
			decision: domain.ReviewDecision{Action: domain.ReviewChangeSeverity, NewSeverity: severity(domain.SeverityHigh), Reason: "   "},
			wantErr:  apperrors.ErrSeverityReasonRequired,
			wantMsg:  "severityChangeReason is required",
		},
		{
			name:     "unknown action",
			actor:    manager,
			creator:  associate.ID,
			status:   domain.StatusDraft,
			decision: domain.ReviewDecision{Action: "REJECT"},
			wantErr:  apperrors.ErrUnsupportedAction,
			wantMsg:  "Unsupported action",
		},
	}

	for _, tt := range rejections {
		t.Run(tt.name, func(t *testing.T) {
			ticket := newDraft(t, tt.creator, domain.SeverityLow)
			ticket.Status = tt.status
			before := *ticket

			h, err := ticket.Review(tt.actor, tt.decision, now)
			require.Error(t, err)
			assert.Nil(t, h)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Equal(t, before, *ticket)
		})
	}

	t.Run("forbidden rules wrap ErrForbidden", func(t *testing.T) {
		ticket := newDraft(t, manager.ID, domain.SeverityLow)
		_, err := ticket.Review(manager, domain.ReviewDecision{Action: domain.ReviewApprove}, now)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, 403, appErr.StatusCode)
	})
}

func TestTicket_EditInReview(t *testing.T) {
	creator := domain.Principal{ID: uuid.New(), Role: domain.RoleAssociate}

	t.Run("creator edit returns ticket to DRAFT", func(t *testing.T) {
		ticket := newDraft(t, creator.ID, domain.SeverityLow)
		ticket.Status = domain.StatusReview

		h, err := ticket.EditInReview(creator, domain.TicketEdit{Title: strPtr("Printer smoking")}, now)
		require.NoError(t, err)

		assert.Equal(t, domain.StatusDraft, ticket.Status)
		assert.Equal(t, "Printer smoking", ticket.Title)
		assert.Equal(t, "Third floor printer is smoking", ticket.Description)
		assert.Equal(t, domain.StatusReview, *h.FromStatus)
		assert.Equal(t, domain.StatusDraft, *h.ToStatus)
		assert.Equal(t, domain.ReasonEdited, h.Reason)
	})

	t.Run("multibyte title within limit", func(t *testing.T) {
		ticket := newDraft(t, creator.ID, domain.SeverityLow)
		ticket.Status = domain.StatusReview
		title := strings.Repeat("ü", domain.MaxTitleLength)

		_, err := ticket.EditInReview(creator, domain.TicketEdit{Title: &title}, now)
		require.NoError(t, err)
		assert.Equal(t, title, ticket.Title)
	})

	t.Run("outside REVIEW", func(t *testing.T) {
		ticket := newDraft(t, creator.ID, domain.SeverityLow)

		_, err := ticket.EditInReview(creator, domain.TicketEdit{Title: strPtr("x")}, now)
		assert.ErrorIs(t, err, apperrors.ErrNotInReview)
		assert.Equal(t, "Only tickets in REVIEW can be edited by associate", err.Error())
	})

	t.Run("non creator", func(t *testing.T) {
		ticket := newDraft(t, creator.ID, domain.SeverityLow)
		ticket.Status = domain.StatusReview
		other := domain.Principal{ID: uuid.New(), Role: domain.RoleAssociate}

		_, err := ticket.EditInReview(other, domain.TicketEdit{Title: strPtr("x")}, now)
		assert.ErrorIs(t, err, apperrors.ErrNotCreator)
		assert.Equal(t, "Only the original associate can edit", err.Error())
		assert.Equal(t, domain.StatusReview, ticket.Status)
	})
}

func TestTicket_SoftDelete(t *testing.T) {
	actor := domain.Principal{ID: uuid.New(), Role: domain.RoleAssociate}

	for _, status := range []domain.TicketStatus{domain.StatusDraft, domain.StatusReview} {
		t.Run(string(status)+" is deletable", func(t *testing.T) {
			ticket := newDraft(t, actor.ID, domain.SeverityLow)
			ticket.Status = status

			h, err := ticket.SoftDelete(actor, now)
			require.NoError(t, err)
			assert.True(t, ticket.IsDeleted())
			assert.Equal(t, status, ticket.Status)
			assert.Equal(t, status, *h.FromStatus)
			assert.Equal(t, status, *h.ToStatus)
			assert.Equal(t, domain.ReasonSoftDeleted, h.Reason)
		})
	}

	for _, status := range []domain.TicketStatus{domain.StatusPending, domain.StatusOpen, domain.StatusClosed} {
		t.Run(string(status)+" is not deletable", func(t *testing.T) {
			ticket := newDraft(t, actor.ID, domain.SeverityLow)
			ticket.Status = status

			_, err := ticket.SoftDelete(actor, now)
			assert.ErrorIs(t, err, apperrors.ErrNotDeletable)
			assert.Equal(t, "Cannot delete ticket with status >= PENDING", err.Error())
			assert.False(t, ticket.IsDeleted())
		})
	}
}

func TestTicket_ApplyImportedStatus(t *testing.T) {
	creator := uuid.New()

	t.Run("changes status", func(t *testing.T) {
		ticket := newDraft(t, creator, domain.SeverityLow)
		ticket.Status = domain.StatusPending

		h, changed, err := ticket.ApplyImportedStatus(domain.StatusOpen, nil, now)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, domain.StatusOpen, ticket.Status)
		assert.Nil(t, h.UserID)
		assert.Equal(t, domain.ReasonCSVImport, h.Reason)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		ticket := newDraft(t, creator, domain.SeverityLow)
		ticket.Status = domain.StatusClosed

		h, changed, err := ticket.ApplyImportedStatus(domain.StatusClosed, nil, now)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Nil(t, h)
	})

	t.Run("draft ticket cannot be imported", func(t *testing.T) {
		ticket := newDraft(t, creator, domain.SeverityLow)

		_, _, err := ticket.ApplyImportedStatus(domain.StatusOpen, nil, now)
		assert.ErrorIs(t, err, apperrors.ErrStatusNotImportable)
		assert.Equal(t, domain.StatusDraft, ticket.Status)
	})

	t.Run("target must be importable", func(t *testing.T) {
		ticket := newDraft(t, creator, domain.SeverityLow)
		ticket.Status = domain.StatusPending

		_, _, err := ticket.ApplyImportedStatus(domain.StatusReview, nil, now)
		assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
	})
}

func TestScenario_EscalateEditApprove(t *testing.T) {
	associate := domain.Principal{ID: uuid.New(), Role: domain.RoleAssociate}
	manager := domain.Principal{ID: uuid.New(), Role: domain.RoleManager}
	ticket := newDraft(t, associate.ID, domain.SeverityMedium)

	var history []*domain.TicketHistory
	history = append(history, ticket.CreationHistory())

	h, err := ticket.Review(manager, domain.ReviewDecision{
		Action:      domain.ReviewChangeSeverity,
		NewSeverity: severity(domain.SeverityHigh),
		Reason:      "outage",
	}, now)
	require.NoError(t, err)
	require.Equal(t, domain.StatusReview, ticket.Status)
	history = append(history, h)

	h, err = ticket.EditInReview(associate, domain.TicketEdit{Title: strPtr("Printer outage")}, now)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDraft, ticket.Status)
	history = append(history, h)

	h, err = ticket.Review(manager, domain.ReviewDecision{Action: domain.ReviewApprove}, now)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, ticket.Status)
	history = append(history, h)

	require.Len(t, history, 4)
	for _, entry := range history {
		assert.Equal(t, ticket.ID, entry.TicketID)
	}
}

func TestNewTicketCSVRow(t *testing.T) {
	ticket := newDraft(t, uuid.New(), domain.SeverityHigh)
	ticket.Status = domain.StatusPending

	row := domain.NewTicketCSVRow(ticket)
	assert.Equal(t, []string{
		ticket.ID.String(),
		"TKT-2025-000001",
		"PENDING",
		"HIGH",
		"Printer on fire",
		"2025-09-01T00:00:00.000Z",
	}, row.Record())
	assert.Len(t, row.Record(), len(domain.CSVColumns))
}
