// Package result holds query result sets.
package result

// SourceColumn tags a row with the dataset it came from.
const SourceColumn = "_source_dataset"

// Set is a query result: ordered column names and row values.
// Values are nil, int64, float64, string, bool or []byte.
type Set struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Empty reports whether the set has no rows.
func (s *Set) Empty() bool { return s == nil || len(s.Rows) == 0 }

// ColumnValues returns the values of column j.
func (s *Set) ColumnValues(j int) []any {
	out := make([]any, len(s.Rows))
	for i, row := range s.Rows {
		if j < len(row) {
			out[i] = row[j]
		}
	}
	return out
}

// Concat appends sets with possibly different columns. The output columns
// are the union in first-seen order; missing cells are nil.
func Concat(sets ...*Set) *Set {
	out := &Set{}
	pos := map[string]int{}
	for _, s := range sets {
		for _, c := range s.Columns {
			if _, ok := pos[c]; !ok {
				pos[c] = len(out.Columns)
				out.Columns = append(out.Columns, c)
			}
		}
	}
	for _, s := range sets {
		for _, row := range s.Rows {
			merged := make([]any, len(out.Columns))
			for j, c := range s.Columns {
				if j < len(row) {
					merged[pos[c]] = row[j]
				}
			}
			out.Rows = append(out.Rows, merged)
		}
	}
	return out
}

// WithSource returns a copy of s with a provenance column appended.
func WithSource(s *Set, source string) *Set {
	out := &Set{
		Columns: append(append([]string(nil), s.Columns...), SourceColumn),
		Rows:    make([][]any, len(s.Rows)),
	}
	for i, row := range s.Rows {
		out.Rows[i] = append(append([]any(nil), row...), source)
	}
	return out
}
