// Package table holds the SourceTable, the unit of data flowing from a source
// through its compute pipeline to the monitor factory.
package table

import (
	"strings"
	"sync"
)

const (
	// ColumnSeparator separates cells in the flattened text form
	ColumnSeparator = ";"
	// RowSeparator separates rows in the flattened text form
	RowSeparator = "\n"
)

// Table is an ordered sequence of rows of string cells. A Table is never
// mutated once built: operators produce new tables.
type Table struct {
	rows [][]string
	text *lazyText
}

type lazyText struct {
	once sync.Once
	s    string
}

// New wraps rows into a Table. The caller hands over ownership of rows.
func New(rows [][]string) Table {
	return Table{rows: rows, text: &lazyText{}}
}

// Empty returns a table with no rows
func Empty() Table {
	return New(nil)
}

// Rows returns the rows. Callers must not modify them.
func (t Table) Rows() [][]string {
	return t.rows
}

// Len returns the number of rows
func (t Table) Len() int {
	return len(t.rows)
}

// IsEmpty reports whether the table has no rows
func (t Table) IsEmpty() bool {
	return len(t.rows) == 0
}

// Row returns the i-th row (0-based)
func (t Table) Row(i int) []string {
	return t.rows[i]
}

// Clone returns a deep copy of the rows, safe to modify
func (t Table) Clone() [][]string {
	out := make([][]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = CopyRow(row)
	}

	return out
}

// Text returns the flattened representation, computed once per table
func (t Table) Text() string {
	if t.text == nil {
		return Format(t.rows, ColumnSeparator, RowSeparator)
	}
	t.text.once.Do(func() {
		t.text.s = Format(t.rows, ColumnSeparator, RowSeparator)
	})

	return t.text.s
}

// Equal reports whether both tables hold the same cells
func (t Table) Equal(other Table) bool {
	if len(t.rows) != len(other.rows) {
		return false
	}
	for i := range t.rows {
		if !equalRow(t.rows[i], other.rows[i]) {
			return false
		}
	}

	return true
}

// Union concatenates the rows of the given tables in order
func Union(tables ...Table) Table {
	size := 0
	for _, t := range tables {
		size += t.Len()
	}
	rows := make([][]string, 0, size)
	for _, t := range tables {
		rows = append(rows, t.rows...)
	}

	return New(rows)
}

// CopyRow returns a copy of row
func CopyRow(row []string) []string {
	out := make([]string, len(row))
	copy(out, row)

	return out
}

func equalRow(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// Format renders rows with a trailing column separator on every row, the
// layout connectors use for literal tables.
func Format(rows [][]string, colSep, rowSep string) string {
	var sb strings.Builder
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(rowSep)
		}
		for _, cell := range row {
			sb.WriteString(cell)
			sb.WriteString(colSep)
		}
	}

	return sb.String()
}

// Parse splits text into rows and columns. Empty lines are skipped and one
// trailing column separator per line is ignored.
func Parse(text, colSep, rowSep string) Table {
	if colSep == "" {
		colSep = ColumnSeparator
	}
	if rowSep == "" {
		rowSep = RowSeparator
	}

	var rows [][]string
	for _, line := range strings.Split(text, rowSep) {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		line = strings.TrimSuffix(line, colSep)
		rows = append(rows, strings.Split(line, colSep))
	}

	return New(rows)
}

// FromText parses text using the default separators
func FromText(text string) Table {
	return Parse(text, ColumnSeparator, RowSeparator)
}

// SingleCell wraps a scalar value into a one-row, one-column table
func SingleCell(value string) Table {
	return New([][]string{{value}})
}
