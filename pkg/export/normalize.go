package export

import (
	"fmt"
	"sort"
)

// NormalizedRow is a row aligned to the ordered column set of one export.
type NormalizedRow []string

// ColumnPolicy selects where the column set of an export comes from.
type ColumnPolicy string

const (
	// PolicyAuto uses the view layout when the view has one and falls back
	// to the data policy only when it has none at all.
	PolicyAuto ColumnPolicy = "auto"

	// PolicyView uses the view layout. Rows stream to the writer.
	PolicyView ColumnPolicy = "view"

	// PolicyData uses the union of attribute names seen across all rows, in
	// first-seen order. Every row is buffered before the header is known, so
	// memory grows with the result size.
	PolicyData ColumnPolicy = "data"
)

// ParseColumnPolicy parses a policy name. The empty string means auto.
func ParseColumnPolicy(s string) (ColumnPolicy, error) {
	switch ColumnPolicy(s) {
	case "", PolicyAuto:
		return PolicyAuto, nil
	case PolicyView, PolicyData:
		return ColumnPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown column policy %q (must be auto, view or data)", s)
	}
}

// Normalize aligns row to columns. Missing attributes become empty text and
// attributes outside columns are dropped.
func Normalize(row FormattedRow, columns []string) NormalizedRow {
	out := make(NormalizedRow, len(columns))
	for i, column := range columns {
		out[i] = row[column]
	}
	return out
}

// ViewColumns returns the column set of a view layout.
func ViewColumns(def *ViewDefinition) []string {
	return append([]string(nil), def.Columns...)
}

// UnionColumns accumulates the union of attribute names across rows in
// first-seen order. Names first seen in the same row are ordered by name so
// the result does not depend on map iteration.
type UnionColumns struct {
	seen    map[string]struct{}
	columns []string
}

// NewUnionColumns returns an empty accumulator.
func NewUnionColumns() *UnionColumns {
	return &UnionColumns{seen: make(map[string]struct{})}
}

// Add records the attribute names of row.
func (u *UnionColumns) Add(row FormattedRow) {
	var fresh []string
	for name := range row {
		if _, ok := u.seen[name]; !ok {
			u.seen[name] = struct{}{}
			fresh = append(fresh, name)
		}
	}
	sort.Strings(fresh)
	u.columns = append(u.columns, fresh...)
}

// Columns returns the accumulated column set.
func (u *UnionColumns) Columns() []string {
	return append([]string(nil), u.columns...)
}
