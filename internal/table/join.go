package table

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrDuplicateKey is returned by a one-to-one join when a key repeats on either side.
	ErrDuplicateKey = errors.New("table: duplicate join key")

	// ErrMissingColumn is returned when the join key is absent from an input.
	ErrMissingColumn = errors.New("table: missing column")
)

// Validate selects how a join treats repeated keys
type Validate int

const (
	// OneToOne rejects repeated keys on either side
	OneToOne Validate = iota
	// ManyToMany emits every left/right combination for a repeated key
	ManyToMany
)

// JoinStats describes what an inner join kept and dropped
type JoinStats struct {
	Matched        int      // output rows
	LeftUnmatched  int      // left rows without a partner
	RightUnmatched int      // right rows without a partner
	DuplicateKeys  []string // keys seen more than once on either side
}

// InnerJoin merges left and right on key. Left row order is preserved and,
// for each left row, matching right rows follow right row order. Columns
// other than key that exist on both sides are suffixed with _x and _y.
func InnerJoin(left, right *Table, key string, validate Validate) (*Table, JoinStats, error) {
	var stats JoinStats

	if !left.Has(key) {
		return nil, stats, fmt.Errorf("%w: left side has no %q", ErrMissingColumn, key)
	}
	if !right.Has(key) {
		return nil, stats, fmt.Errorf("%w: right side has no %q", ErrMissingColumn, key)
	}

	rightIndex := make(map[string][]int, len(right.Rows))
	for i, row := range right.Rows {
		rightIndex[row[key]] = append(rightIndex[row[key]], i)
	}
	leftCount := make(map[string]int, len(left.Rows))
	for _, row := range left.Rows {
		leftCount[row[key]]++
	}

	dups := make(map[string]bool)
	for k, n := range leftCount {
		if n > 1 {
			dups[k] = true
		}
	}
	for k, idx := range rightIndex {
		if len(idx) > 1 {
			dups[k] = true
		}
	}
	for k := range dups {
		stats.DuplicateKeys = append(stats.DuplicateKeys, k)
	}
	sort.Strings(stats.DuplicateKeys)

	if validate == OneToOne && len(stats.DuplicateKeys) > 0 {
		return nil, stats, fmt.Errorf("%w: %s", ErrDuplicateKey, strings.Join(stats.DuplicateKeys, ", "))
	}

	leftNames, rightNames, columns := joinColumns(left.Columns, right.Columns, key)
	out := New(columns...)

	for _, lrow := range left.Rows {
		matches := rightIndex[lrow[key]]
		if len(matches) == 0 {
			stats.LeftUnmatched++
			continue
		}
		for _, ri := range matches {
			merged := make(Row, len(columns))
			for _, c := range left.Columns {
				merged[leftNames[c]] = lrow[c]
			}
			for _, c := range right.Columns {
				if c == key {
					continue
				}
				merged[rightNames[c]] = right.Rows[ri][c]
			}
			out.Rows = append(out.Rows, merged)
		}
	}

	for k, idx := range rightIndex {
		if leftCount[k] == 0 {
			stats.RightUnmatched += len(idx)
		}
	}
	stats.Matched = len(out.Rows)

	return out, stats, nil
}

// joinColumns resolves output names for both sides
func joinColumns(left, right []string, key string) (map[string]string, map[string]string, []string) {
	inLeft := make(map[string]bool, len(left))
	for _, c := range left {
		inLeft[c] = true
	}
	inRight := make(map[string]bool, len(right))
	for _, c := range right {
		inRight[c] = true
	}

	leftNames := make(map[string]string, len(left))
	rightNames := make(map[string]string, len(right))
	columns := make([]string, 0, len(left)+len(right))

	for _, c := range left {
		name := c
		if c != key && inRight[c] {
			name = c + "_x"
		}
		leftNames[c] = name
		columns = append(columns, name)
	}
	for _, c := range right {
		if c == key {
			continue
		}
		name := c
		if inLeft[c] {
			name = c + "_y"
		}
		rightNames[c] = name
		columns = append(columns, name)
	}

	return leftNames, rightNames, columns
}
