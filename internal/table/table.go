package table

import (
	"slices"
	"sort"
)

// Row is a single record keyed by column name
type Row map[string]string

// Table is an ordered list of columns plus the rows that fill them.
// It is the unit handed from one pipeline stage to the next.
type Table struct {
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given columns
func New(columns ...string) *Table {
	return &Table{
		Columns: append([]string(nil), columns...),
		Rows:    make([]Row, 0),
	}
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Has reports whether the column exists
func (t *Table) Has(column string) bool {
	return slices.Contains(t.Columns, column)
}

// Append adds a row. Keys not yet known become new columns, added in
// sorted order so repeated runs produce the same layout.
func (t *Table) Append(row Row) {
	var added []string
	for k := range row {
		if !t.Has(k) {
			added = append(added, k)
		}
	}
	sort.Strings(added)
	t.Columns = append(t.Columns, added...)
	t.Rows = append(t.Rows, row)
}

// Column returns every value of a column in row order
func (t *Table) Column(name string) []string {
	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[name]
	}
	return values
}

// Clone returns a deep copy
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, row := range t.Rows {
		cp := make(Row, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// Drop removes the given columns. Columns that do not exist are ignored.
func (t *Table) Drop(columns ...string) {
	drop := make(map[string]bool, len(columns))
	for _, c := range columns {
		drop[c] = true
	}

	kept := t.Columns[:0]
	for _, c := range t.Columns {
		if !drop[c] {
			kept = append(kept, c)
		}
	}
	t.Columns = kept

	for _, row := range t.Rows {
		for c := range drop {
			delete(row, c)
		}
	}
}

// Rename applies an old -> new column name mapping. Unknown names are ignored.
func (t *Table) Rename(mapping map[string]string) {
	for i, c := range t.Columns {
		if to, ok := mapping[c]; ok {
			t.Columns[i] = to
		}
	}
	for _, row := range t.Rows {
		for from, to := range mapping {
			v, ok := row[from]
			if !ok {
				continue
			}
			delete(row, from)
			row[to] = v
		}
	}
}

// Set writes a value into a column for row i, registering the column if needed
func (t *Table) Set(i int, column, value string) {
	if !t.Has(column) {
		t.Columns = append(t.Columns, column)
	}
	t.Rows[i][column] = value
}

// SortStable sorts rows with less, keeping the original order of equal rows
func (t *Table) SortStable(less func(a, b Row) bool) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return less(t.Rows[i], t.Rows[j])
	})
}

// Arrange puts the preferred columns that exist first, in the given order,
// followed by every other column sorted alphabetically.
func (t *Table) Arrange(preferred []string) {
	seen := make(map[string]bool, len(preferred))
	ordered := make([]string, 0, len(t.Columns))
	for _, c := range preferred {
		if t.Has(c) && !seen[c] {
			ordered = append(ordered, c)
			seen[c] = true
		}
	}

	var rest []string
	for _, c := range t.Columns {
		if !seen[c] {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)

	t.Columns = append(ordered, rest...)
}
