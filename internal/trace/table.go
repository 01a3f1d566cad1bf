package trace

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	// ErrEmpty is returned when a file has a header but no data rows.
	ErrEmpty = errors.New("trace: no data rows")
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("trace: missing required column")
	// ErrUnordered is returned when samples are not ordered by the independent variable.
	ErrUnordered = errors.New("trace: samples not ordered by independent variable")
	// ErrParse is returned for cells that are not valid numbers.
	ErrParse = errors.New("trace: malformed value")
)

// Table is a CSV file split into its header, raw data records and the
// metadata parsed from '#' comment lines.
type Table struct {
	Header   []string
	Rows     [][]string
	Metadata Metadata
}

// ParseTable reads a probe-station CSV. Lines whose first non-blank
// character is '#' are parsed as "# key: value" metadata and excluded from
// the tabular data; the first remaining line is the header.
func ParseTable(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\ufeff"))

	meta := make(Metadata)
	var data bytes.Buffer
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			if k, v, ok := parseMetadataLine(line); ok {
				meta[k] = v
			}
			continue
		}
		data.WriteString(line)
		data.WriteByte('\n')
	}

	cr := csv.NewReader(&data)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrMissingColumn)
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	return &Table{Header: header, Rows: records[1:], Metadata: meta}, nil
}

// Index returns the position of col in the header, or -1.
func (t *Table) Index(col string) int {
	for i, h := range t.Header {
		if h == col {
			return i
		}
	}
	return -1
}

// Has reports whether the header contains col.
func (t *Table) Has(col string) bool { return t.Index(col) >= 0 }

// Floats parses every row's value in col as a float64.
func (t *Table) Floats(col string) ([]float64, error) {
	idx := t.Index(col)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
		if err != nil {
			// +2: one for the header, one for 1-based row numbers
			return nil, fmt.Errorf("%w: column %q row %d: %q", ErrParse, col, i+2, row[idx])
		}
		out[i] = v
	}
	return out, nil
}

// First returns col's value in the first data row.
func (t *Table) First(col string) (string, bool) {
	idx := t.Index(col)
	if idx < 0 || len(t.Rows) == 0 {
		return "", false
	}
	return strings.TrimSpace(t.Rows[0][idx]), true
}
