package domain

import (
	"iter"
	"strings"
)

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Row is one data record keyed by trimmed header name. Every header column is
// present; columns missing from a short record hold "".
type Row struct {
	columns []string
	values  map[string]string
}

// Get returns the value of column and whether the header defines it.
func (r Row) Get(column string) (string, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Value returns the value of column, or "" when the header does not define it.
func (r Row) Value(column string) string {
	return r.values[column]
}

// Columns returns the distinct column names in header order.
func (r Row) Columns() []string {
	return r.columns
}

// Table is a parsed snapshot: the header and a lazily scanned body. Rows can
// be iterated any number of times; each pass rescans the text.
type Table struct {
	Header []string

	columns []string
	text    string
	body    int // offset of the first record after the header
}

// Parse reads the header of a decoded snapshot and positions the table at the
// first data record. Text without any record yields an empty header and no rows.
func Parse(text string) Table {
	text = lineEndings.Replace(text)

	s := &recordScanner{src: text}
	fields, ok := s.next()
	if !ok {
		return Table{text: text, body: len(text)}
	}

	header := make([]string, len(fields))
	seen := make(map[string]bool, len(fields))
	columns := make([]string, 0, len(fields))
	for i, f := range fields {
		name := strings.TrimSpace(f)
		header[i] = name
		if !seen[name] {
			seen[name] = true
			columns = append(columns, name)
		}
	}

	return Table{Header: header, columns: columns, text: text, body: s.pos}
}

// HasColumn reports whether the header defines name.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.columns {
		if c == name {
			return true
		}
	}
	return false
}

// Rows yields every non-blank data record zipped against the header.
func (t Table) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		s := &recordScanner{src: t.text, pos: t.body}
		for {
			fields, ok := s.next()
			if !ok {
				return
			}
			if !yield(t.zip(fields)) {
				return
			}
		}
	}
}

// Len counts the data records.
func (t Table) Len() int {
	n := 0
	for range t.Rows() {
		n++
	}
	return n
}

// zip keys fields by header position. Extra fields are dropped and a
// duplicated header name keeps the value of its last occurrence.
func (t Table) zip(fields []string) Row {
	values := make(map[string]string, len(t.columns))
	for i, name := range t.Header {
		v := ""
		if i < len(fields) {
			v = strings.TrimSpace(fields[i])
		}
		values[name] = v
	}
	return Row{columns: t.columns, values: values}
}

// recordScanner splits LF-normalized text into records with a two-state
// (unquoted/quoted) machine. Delimiters are ASCII, so scanning bytes never
// splits a multi-byte character.
type recordScanner struct {
	src string
	pos int
}

// next returns the next record, skipping blank lines.
func (s *recordScanner) next() ([]string, bool) {
	for s.pos < len(s.src) {
		fields, blank := s.scanRecord()
		if !blank {
			return fields, true
		}
	}
	return nil, false
}

// scanRecord consumes one record. blank is true only for an empty line; a
// line holding just "" is a record with one empty field.
func (s *recordScanner) scanRecord() (fields []string, blank bool) {
	var field strings.Builder
	quoted, sawQuote := false, false

	for s.pos < len(s.src) {
		c := s.src[s.pos]
		s.pos++

		if quoted {
			if c != '"' {
				field.WriteByte(c)
				continue
			}
			if s.pos < len(s.src) && s.src[s.pos] == '"' {
				field.WriteByte('"')
				s.pos++
				continue
			}
			quoted = false
			continue
		}

		switch c {
		case '"':
			quoted, sawQuote = true, true
		case ',':
			fields = append(fields, field.String())
			field.Reset()
		case '\n':
			fields = append(fields, field.String())
			return fields, isBlank(fields, sawQuote)
		default:
			field.WriteByte(c)
		}
	}

	fields = append(fields, field.String())
	return fields, isBlank(fields, sawQuote)
}

func isBlank(fields []string, sawQuote bool) bool {
	return !sawQuote && len(fields) == 1 && fields[0] == ""
}
