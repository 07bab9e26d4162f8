package result

import "testing"

func TestConcat_UnionColumns(t *testing.T) {
	a := &Set{Columns: []string{"region", "total"}, Rows: [][]any{{"north", int64(3)}}}
	b := &Set{Columns: []string{"total", "month"}, Rows: [][]any{{int64(5), "jan"}}}

	got := Concat(a, b)
	if len(got.Columns) != 3 || got.Columns[0] != "region" || got.Columns[1] != "total" || got.Columns[2] != "month" {
		t.Fatalf("unexpected columns: %v", got.Columns)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got.Rows))
	}
	if got.Rows[0][2] != nil {
		t.Errorf("expected nil month for first row, got %v", got.Rows[0][2])
	}
	if got.Rows[1][0] != nil || got.Rows[1][1] != int64(5) || got.Rows[1][2] != "jan" {
		t.Errorf("unexpected second row: %v", got.Rows[1])
	}
}

func TestWithSource(t *testing.T) {
	s := &Set{Columns: []string{"a"}, Rows: [][]any{{int64(1)}, {int64(2)}}}
	got := WithSource(s, "sales")
	if got.Columns[1] != SourceColumn {
		t.Fatalf("expected provenance column, got %v", got.Columns)
	}
	for _, row := range got.Rows {
		if row[1] != "sales" {
			t.Errorf("expected source sales, got %v", row[1])
		}
	}
	if len(s.Columns) != 1 {
		t.Error("input set must not be modified")
	}
}

func TestEmpty(t *testing.T) {
	var s *Set
	if !s.Empty() {
		t.Error("nil set must be empty")
	}
	if (&Set{Columns: []string{"a"}}).Empty() != true {
		t.Error("set without rows must be empty")
	}
}
