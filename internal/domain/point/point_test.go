package point

import (
	"testing"

	"github.com/google/uuid"

	"github.com/kailas-cloud/tablens/internal/domain/column"
)

func TestID_Deterministic(t *testing.T) {
	ds := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	a := ID(ds, "amount", 1)
	b := ID(ds, "amount", 1)
	if a != b {
		t.Fatalf("expected identical ids, got %s and %s", a, b)
	}
	if a.Version() != 5 {
		t.Errorf("expected SHA1 (v5) uuid, got version %d", a.Version())
	}
}

func TestID_DistinctInputs(t *testing.T) {
	ds := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	other := uuid.MustParse("11111111-2222-3333-4444-666666666666")
	ids := map[uuid.UUID]string{}
	for name, id := range map[string]uuid.UUID{
		"base":    ID(ds, "amount", 1),
		"index":   ID(ds, "amount", 2),
		"name":    ID(ds, "price", 1),
		"dataset": ID(other, "amount", 1),
	} {
		if prev, ok := ids[id]; ok {
			t.Fatalf("collision between %s and %s", prev, name)
		}
		ids[id] = name
	}
}

func TestNew_Validation(t *testing.T) {
	col := column.Column{Name: "a", Index: 0, Type: column.TypeInt}
	if _, err := New(uuid.Nil, col, "d", []float32{1}); err == nil {
		t.Error("expected error for nil dataset id")
	}
	if _, err := New(uuid.New(), col, "d", nil); err == nil {
		t.Error("expected error for empty vector")
	}
	p, err := New(uuid.New(), col, "d", []float32{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != ID(p.DatasetID, "a", 0) {
		t.Error("expected derived id")
	}
}
