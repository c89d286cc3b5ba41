package domain

import (
	"bytes"
	"encoding/csv"
	"regexp"
	"slices"
	"time"
)

// ColumnCreatedAt holds the proposal creation timestamp, formatted
// dd/mm/yyyy with optional trailing tokens such as an hour.
const ColumnCreatedAt = "created_at"

var createdAtDate = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)

// ExtractDate finds the first dd/mm/yyyy token in s. A token that is not a
// real calendar day yields false.
func ExtractDate(s string) (time.Time, bool) {
	token := createdAtDate.FindString(s)
	if token == "" {
		return time.Time{}, false
	}
	d, err := time.Parse("02/01/2006", token)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// DateRange is an inclusive range of calendar days. A zero To leaves the
// range open-ended.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d time.Time) bool {
	if d.Before(r.From) {
		return false
	}
	return r.To.IsZero() || !d.After(r.To)
}

// FilterOptions selects rows by creation date and removes columns.
type FilterOptions struct {
	Range DateRange
	Drop  []string
}

// FilteredTable is the header and records kept by Filter.
type FilteredTable struct {
	Header  []string
	Records [][]string
}

// Filter keeps the rows whose created_at date lies in opts.Range. Rows
// without a parseable date are dropped. Columns named in opts.Drop and
// unnamed header columns are removed from the output.
func Filter(t Table, opts FilterOptions) FilteredTable {
	header := make([]string, 0, len(t.Header))
	for _, h := range t.Header {
		if h != "" && !slices.Contains(opts.Drop, h) {
			header = append(header, h)
		}
	}

	out := FilteredTable{Header: header}
	for row := range t.Rows() {
		d, ok := ExtractDate(row.Value(ColumnCreatedAt))
		if !ok || !opts.Range.Contains(d) {
			continue
		}
		record := make([]string, len(header))
		for i, h := range header {
			record[i] = row.Value(h)
		}
		out.Records = append(out.Records, record)
	}
	return out
}

// CSV encodes the table with CRLF line endings, quoting only where needed.
func (f FilteredTable) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true
	if err := w.Write(f.Header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(f.Records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
