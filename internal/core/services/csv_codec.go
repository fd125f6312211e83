package services

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/lorrc/ticket-workflow/internal/core/domain"
	apperrors "github.com/lorrc/ticket-workflow/internal/core/errors"
)

const utf8BOM = "\ufeff"

// csvTable is a parsed CSV payload with a normalized header.
type csvTable struct {
	header []string
	index  map[string]int
	rows   [][]string
}

// readCSV parses a header row plus data rows. Header names are matched
// case-insensitively and fields are trimmed. Empty lines are skipped by the
// reader; rows whose fields are all blank are kept. Any parse failure rejects
// the whole payload.
func readCSV(r io.Reader) (*csvTable, error) {
	if r == nil {
		return nil, apperrors.InvalidCSV(nil)
	}

	br := bufio.NewReader(r)
	if lead, err := br.Peek(len(utf8BOM)); err == nil && string(lead) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.InvalidCSV(err)
	}
	if len(records) == 0 {
		return nil, apperrors.InvalidCSV(errors.New("missing header"))
	}

	table := &csvTable{
		header: make([]string, len(records[0])),
		index:  make(map[string]int, len(records[0])),
	}
	for i, name := range records[0] {
		name = strings.ToLower(strings.TrimSpace(name))
		table.header[i] = name
		if _, dup := table.index[name]; !dup && name != "" {
			table.index[name] = i
		}
	}

	table.rows = records[1:]
	for _, record := range table.rows {
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
	}

	return table, nil
}

func (t *csvTable) has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// value returns the named column of row, or "" when the column is absent.
func (t *csvTable) value(row []string, column string) string {
	i, ok := t.index[column]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// ensureColumn appends column to the header and every row when missing and
// returns its position.
func (t *csvTable) ensureColumn(column string) int {
	if i, ok := t.index[column]; ok {
		return i
	}
	i := len(t.header)
	t.header = append(t.header, column)
	t.index[column] = i
	for r := range t.rows {
		t.rows[r] = append(t.rows[r], "")
	}
	return i
}

// writeCSV renders header and rows with RFC 4180 quoting.
func writeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// tallyStatuses counts the status column of a CSV payload.
func tallyStatuses(content []byte) (domain.StatusDistribution, error) {
	var dist domain.StatusDistribution

	table, err := readCSV(bytes.NewReader(content))
	if err != nil {
		return dist, err
	}
	for _, row := range table.rows {
		if status, ok := domain.ParseImportStatus(table.value(row, "status")); ok {
			dist.Add(status)
		}
	}
	return dist, nil
}
