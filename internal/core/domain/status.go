package domain

import "strings"

// TicketStatus represents the possible states of a ticket.
type TicketStatus string

const (
	StatusDraft   TicketStatus = "DRAFT"
	StatusReview  TicketStatus = "REVIEW"
	StatusPending TicketStatus = "PENDING"
	StatusOpen    TicketStatus = "OPEN"
	StatusClosed  TicketStatus = "CLOSED"
)

// statusRank is the total order used for delete eligibility.
var statusRank = map[TicketStatus]int{
	StatusDraft:   1,
	StatusReview:  2,
	StatusPending: 3,
	StatusOpen:    4,
	StatusClosed:  5,
}

// IsValid reports whether s is one of the five lifecycle states.
func (s TicketStatus) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank returns the position of s in DRAFT < REVIEW < PENDING < OPEN < CLOSED,
// or 0 for an unknown status.
func (s TicketStatus) Rank() int {
	return statusRank[s]
}

// IsBefore reports whether s is strictly below other in the total order.
func (s TicketStatus) IsBefore(other TicketStatus) bool {
	return s.IsValid() && other.IsValid() && s.Rank() < other.Rank()
}

// IsImportable reports whether s can be the source or target of a CSV import.
func (s TicketStatus) IsImportable() bool {
	switch s {
	case StatusPending, StatusOpen, StatusClosed:
		return true
	}
	return false
}

// ImportableStatuses lists the states reachable through CSV import.
func ImportableStatuses() []TicketStatus {
	return []TicketStatus{StatusPending, StatusOpen, StatusClosed}
}

// ParseImportStatus normalizes free CSV text to an importable status.
// Matching ignores case and surrounding whitespace.
func ParseImportStatus(raw string) (TicketStatus, bool) {
	status := TicketStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.IsImportable() {
		return "", false
	}
	return status, true
}

// Severity is the ranked impact of a ticket.
type Severity string

const (
	SeverityEasy     Severity = "EASY"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityVeryHigh Severity = "VERY_HIGH"
)

var severityRank = map[Severity]int{
	SeverityEasy:     1,
	SeverityLow:      2,
	SeverityMedium:   3,
	SeverityHigh:     4,
	SeverityVeryHigh: 5,
}

// Severities returns every severity in ascending rank.
func Severities() []Severity {
	return []Severity{SeverityEasy, SeverityLow, SeverityMedium, SeverityHigh, SeverityVeryHigh}
}

// IsValid reports whether s is one of the five ranked severities.
func (s Severity) IsValid() bool {
	_, ok := severityRank[s]
	return ok
}

// Rank returns the position of s in EASY < LOW < MEDIUM < HIGH < VERY_HIGH.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Escalates reports whether moving from `from` to s raises the severity.
func (s Severity) Escalates(from Severity) bool {
	return s.Rank() > from.Rank()
}
