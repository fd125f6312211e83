package domain

import "time"

// CSVColumns is the canonical header of exported and processed files.
var CSVColumns = []string{"id", "ticket_number", "status", "severity", "title", "due_date"}

// csvTimeLayout renders instants with millisecond precision in UTC.
const csvTimeLayout = "2006-01-02T15:04:05.000Z"

// TicketCSVRow is one line of a ticket CSV file. Fields stay as text so
// processed files can be round-tripped without reinterpretation.
type TicketCSVRow struct {
	ID           string
	TicketNumber string
	Status       string
	Severity     string
	Title        string
	DueDate      string
}

// NewTicketCSVRow projects a ticket onto the canonical columns.
func NewTicketCSVRow(t *Ticket) TicketCSVRow {
	return TicketCSVRow{
		ID:           t.ID.String(),
		TicketNumber: t.TicketNumber,
		Status:       string(t.Status),
		Severity:     string(t.Severity),
		Title:        t.Title,
		DueDate:      t.DueDate.UTC().Format(csvTimeLayout),
	}
}

// Record returns the row in CSVColumns order.
func (r TicketCSVRow) Record() []string {
	return []string{r.ID, r.TicketNumber, r.Status, r.Severity, r.Title, r.DueDate}
}

// CSVFile is a named CSV payload.
type CSVFile struct {
	Filename string
	Content  []byte
	Rows     int
}

// StatusDistribution counts rows per importable status.
type StatusDistribution struct {
	Open    int `json:"OPEN"`
	Closed  int `json:"CLOSED"`
	Pending int `json:"PENDING"`
}

// Add tallies one row.
func (d *StatusDistribution) Add(status TicketStatus) {
	switch status {
	case StatusOpen:
		d.Open++
	case StatusClosed:
		d.Closed++
	case StatusPending:
		d.Pending++
	}
}

// Skip reasons reported by the importer.
const (
	SkipInvalidStatus    = "invalid-status"
	SkipNotFound         = "not-found"
	SkipSameStatus       = "same-status"
	SkipIneligibleStatus = "ineligible-status"
	SkipError            = "error"
)

// ImportResult summarizes an applied CSV.
// UpdatedCount + SkippedCount always equals TotalRows; failed rows are
// counted in both SkippedCount and FailedCount.
type ImportResult struct {
	UpdatedCount int            `json:"updatedCount"`
	SkippedCount int            `json:"skippedCount"`
	TotalRows    int            `json:"totalRows"`
	FailedCount  int            `json:"failedCount"`
	SkipReasons  map[string]int `json:"skipReasons"`
}

// EmptyImportResult is the result of applying no rows.
func EmptyImportResult() ImportResult {
	return ImportResult{SkipReasons: map[string]int{}}
}

// AutomationReport is the outcome of one export, mutate and import cycle.
type AutomationReport struct {
	ExportedCount int                `json:"exportedCount"`
	Distribution  StatusDistribution `json:"distribution"`
	Import        ImportResult       `json:"import"`
	ExportFile    string             `json:"exportFile,omitempty"`
	ProcessedFile string             `json:"processedFile,omitempty"`
	StartedAt     time.Time          `json:"startedAt"`
	FinishedAt    time.Time          `json:"finishedAt"`
}

// CSVTimestamp formats the filename suffix YYYY-MM-DD-HH-MM-SS.
func CSVTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02-15-04-05")
}
