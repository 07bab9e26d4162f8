package db

import (
	"strings"
	"testing"
)

func TestIndexBuilder_ColumnIndex(t *testing.T) {
	idx, err := NewIndex("tablens:columns_1536:idx", "tablens:columns_1536:").
		Tag("dataset_id").
		Text("description").
		Vector("__vector", "vector", 1536).
		HNSW(16, 200).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if idx.Prefix != "tablens:columns_1536:" {
		t.Errorf("prefix = %q", idx.Prefix)
	}
	want := []Field{{Name: "dataset_id", Kind: KindTag}, {Name: "description", Kind: KindText}}
	if len(idx.Fields) != len(want) {
		t.Fatalf("fields = %+v, want %+v", idx.Fields, want)
	}
	for i := range want {
		if idx.Fields[i] != want[i] {
			t.Errorf("field[%d] = %+v, want %+v", i, idx.Fields[i], want[i])
		}
	}
	v := idx.Vector
	if v.Alias != "vector" || v.Dim != 1536 || v.M != 16 || v.EFConstruction != 200 {
		t.Errorf("vector field = %+v", v)
	}
}

func TestIndexBuilder_BuildCopiesFields(t *testing.T) {
	b := NewIndex("idx", "p:").Tag("a").Vector("__vector", "", 3)
	first, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.Tag("b")
	if len(first.Fields) != 1 {
		t.Errorf("built definition changed: %+v", first.Fields)
	}
}

func TestIndexBuilder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder *IndexBuilder
		wantErr string
	}{
		{"empty name", NewIndex("", "p:").Vector("v", "", 3), "index name is required"},
		{"invalid characters", NewIndex("idx with spaces", "p:").Vector("v", "", 3), "invalid characters"},
		{"no prefix", NewIndex("idx", "").Vector("v", "", 3), "prefix is required"},
		{"no vector", NewIndex("idx", "p:").Tag("x"), "vector field is required"},
		{"zero dimension", NewIndex("idx", "p:").Vector("v", "", 0), "must be positive"},
		{"duplicate tag", NewIndex("idx", "p:").Tag("x").Text("x").Vector("v", "", 3), "duplicate field"},
		{"tag shadows alias", NewIndex("idx", "p:").Tag("vector").Vector("__vector", "vector", 3), "duplicate field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got error %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	for s, want := range map[string]bool{
		"tablens:columns_1536:idx": true,
		"a-b":                      true,
		"":                         false,
		"a b":                      false,
		"a/b":                      false,
	} {
		if got := IsValidIdentifier(s); got != want {
			t.Errorf("IsValidIdentifier(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestTagQuery(t *testing.T) {
	tests := []struct {
		name string
		tags []TagFilter
		want string
	}{
		{"none", nil, "*"},
		{"uuid", []TagFilter{{Field: "dataset_id", Value: "0f8fad5b-d9cb"}}, `@dataset_id:{0f8fad5b\-d9cb}`},
		{"two", []TagFilter{{Field: "a", Value: "x y"}, {Field: "b", Value: "z"}}, `@a:{x\ y} @b:{z}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TagQuery(tt.tags); got != tt.want {
				t.Errorf("TagQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}
