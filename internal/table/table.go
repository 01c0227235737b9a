// Package table holds the column-oriented tabular model the engine operates
// on, with CSV and XLS/XLSX readers and a CSV writer.
package table

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Table is an in-memory tabular dataset: one header row plus data rows.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// ColumnIndex returns the index of the named column, matching
// case-insensitively on trimmed header names. Returns -1 if absent.
func (t *Table) ColumnIndex(name string) int {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range t.Headers {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i
		}
	}
	return -1
}

// ColumnIndices resolves a list of column names. Missing columns are
// returned by name so the caller can distinguish "all absent" (fatal) from
// "some absent" (tolerated, recorded).
func (t *Table) ColumnIndices(names []string) (indices []int, missing []string) {
	for _, name := range names {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			missing = append(missing, name)
			continue
		}
		indices = append(indices, idx)
	}
	return indices, missing
}

// Cell returns the cell at (row, col), tolerating ragged rows.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// SetCell writes the cell at (row, col), growing a ragged row as needed.
func (t *Table) SetCell(row, col int, value string) error {
	if row < 0 || row >= len(t.Rows) {
		return eris.Errorf("table: row %d out of range", row)
	}
	if col < 0 {
		return eris.Errorf("table: column %d out of range", col)
	}
	for len(t.Rows[row]) <= col {
		t.Rows[row] = append(t.Rows[row], "")
	}
	t.Rows[row][col] = value
	return nil
}

// Clone deep-copies the table. The engine snapshots the input this way for
// the undo artifact before any step mutates rows.
func (t *Table) Clone() *Table {
	c := &Table{
		Headers: append([]string(nil), t.Headers...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, r := range t.Rows {
		c.Rows[i] = append([]string(nil), r...)
	}
	return c
}

// SelectRows returns a new table keeping only the given row indices, in the
// order provided.
func (t *Table) SelectRows(indices []int) *Table {
	out := &Table{Headers: append([]string(nil), t.Headers...)}
	for _, i := range indices {
		if i < 0 || i >= len(t.Rows) {
			continue
		}
		out.Rows = append(out.Rows, append([]string(nil), t.Rows[i]...))
	}
	return out
}
