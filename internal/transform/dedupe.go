package transform

import (
	"sort"
	"strings"
)

// keySeparator joins key columns without colliding with cell content.
const keySeparator = "\x1f"

// DedupeKey computes the canonical duplicate key for a row projection:
// each selected cell is whitespace-trimmed and case-folded, then the cells
// are joined in column order.
func DedupeKey(cells []string) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return strings.Join(parts, keySeparator)
}

// Dedupe returns the indices of surviving rows after removing duplicates on
// the projected key columns. With keepFirst the earliest occurrence of each
// key survives; otherwise the latest does. Surviving rows keep their
// original relative order either way.
func Dedupe(rows [][]string, keyColumns []int, keepFirst bool) []int {
	winner := make(map[string]int, len(rows))
	order := make([]string, 0, len(rows))

	for i, row := range rows {
		cells := make([]string, len(keyColumns))
		for j, col := range keyColumns {
			if col < len(row) {
				cells[j] = row[col]
			}
		}
		key := DedupeKey(cells)

		if _, seen := winner[key]; !seen {
			winner[key] = i
			order = append(order, key)
			continue
		}
		if !keepFirst {
			winner[key] = i
		}
	}

	survivors := make([]int, 0, len(order))
	for _, key := range order {
		survivors = append(survivors, winner[key])
	}
	// keepFirst=false can leave winners out of row order.
	sort.Ints(survivors)
	return survivors
}
