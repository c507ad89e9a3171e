package services

import (
	"fmt"
	"sort"
	"strings"
)

// Compare joins two loading vectors by item name and reports elementwise
// differences (a-b) and ratios (a/b). The key sets must match exactly;
// a mismatch fails with ErrorMismatchedKeys naming the offending items
// instead of silently comparing the intersection. A zero denominator marks
// the row's ratio undefined rather than aborting the table.
func Compare(a, b LoadingVector) (*ComparisonTable, error) {
	var missingFromB, missingFromA []string
	for k := range a {
		if _, ok := b[k]; !ok {
			missingFromB = append(missingFromB, k)
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			missingFromA = append(missingFromA, k)
		}
	}
	if len(missingFromA) > 0 || len(missingFromB) > 0 {
		sort.Strings(missingFromA)
		sort.Strings(missingFromB)
		var parts []string
		if len(missingFromB) > 0 {
			parts = append(parts, fmt.Sprintf("only in a: %s", strings.Join(missingFromB, ",")))
		}
		if len(missingFromA) > 0 {
			parts = append(parts, fmt.Sprintf("only in b: %s", strings.Join(missingFromA, ",")))
		}
		return nil, NewMismatchedKeysError("comparison key sets differ: " + strings.Join(parts, "; "))
	}

	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]ComparisonRow, 0, len(keys))
	for _, k := range keys {
		row := ComparisonRow{Item: k, A: a[k], B: b[k], Diff: a[k] - b[k]}
		if b[k] != 0 {
			row.Ratio = a[k] / b[k]
			row.RatioOK = true
		}
		rows = append(rows, row)
	}
	return &ComparisonTable{Rows: rows}, nil
}
