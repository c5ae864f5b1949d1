package dashboard

import (
	"sort"
	"strconv"

	"legends/internal/table"
)

// SortKey is one column of a multi-column ordering
type SortKey struct {
	Column string
	Desc   bool
}

// DefaultOrder ranks by level then points, highest first
var DefaultOrder = []SortKey{{Column: "level", Desc: true}, {Column: "points", Desc: true}}

// sortRows orders rows in place by keys. Cells that both parse as numbers
// compare numerically, everything else compares as text.
func sortRows(rows []table.Row, keys []SortKey) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			c := compareCells(rows[i][k.Column], rows[j][k.Column])
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareCells(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
