package point

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/kailas-cloud/tablens/internal/db"
	"github.com/kailas-cloud/tablens/internal/domain/column"
	dompoint "github.com/kailas-cloud/tablens/internal/domain/point"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetMultiFn  func(ctx context.Context, items []db.HashSetItem) error
	delMultiFn   func(ctx context.Context, keys []string) (int, error)
	searchKNNFn  func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchListFn func(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) DelMulti(ctx context.Context, keys []string) (int, error) {
	if m.delMultiFn != nil {
		return m.delMultiFn(ctx, keys)
	}
	return len(keys), nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchList(
	ctx context.Context, index, query string, offset, limit int, fields []string,
) (*db.SearchResult, error) {
	if m.searchListFn != nil {
		return m.searchListFn(ctx, index, query, offset, limit, fields)
	}
	return &db.SearchResult{}, nil
}

var testDatasetID = uuid.MustParse("6f1c2b9e-7d4a-4c61-9a55-0e1f2a3b4c5d")

const testCollection = "columns_3"

func testPoint(t *testing.T, name string, index int) dompoint.Point {
	t.Helper()
	p, err := dompoint.New(testDatasetID, column.Column{Name: name, Index: index, Type: column.TypeFloat},
		"name: "+name+", type: float", []float32{0.1, 0.2, 0.3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

// entryFor renders a point the way FT.SEARCH returns it.
func entryFor(t *testing.T, p dompoint.Point, withVector bool) db.SearchEntry {
	t.Helper()
	fields, err := pointToHash(&p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !withVector {
		delete(fields, "__vector")
	}
	return db.SearchEntry{Key: pointKey(testCollection, p.ID), Fields: fields}
}
