// Package point stores column embeddings as hashes under a collection's FT index.
package point

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/kailas-cloud/tablens/internal/db"
	dompoint "github.com/kailas-cloud/tablens/internal/domain/point"
	colrepo "github.com/kailas-cloud/tablens/internal/repository/collection"
)

// pageSize bounds every FT.SEARCH scroll page.
const pageSize = 100

// store is the consumer interface for points (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	DelMulti(ctx context.Context, keys []string) (int, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
}

// payloadFields are returned by scrolls; the vector is left out.
var payloadFields = []string{
	colrepo.FieldDatasetID,
	colrepo.FieldColumnName,
	colrepo.FieldColumnIndex,
	colrepo.FieldColumn,
	colrepo.FieldDescription,
}

// Repo reads and writes column points.
type Repo struct {
	store store
}

// New creates a point repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Upsert writes points into a collection in one pipelined round-trip.
func (r *Repo) Upsert(ctx context.Context, collection string, points []dompoint.Point) error {
	if len(points) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, 0, len(points))
	for i := range points {
		fields, err := pointToHash(&points[i])
		if err != nil {
			return err
		}
		items = append(items, db.HashSetItem{Key: pointKey(collection, points[i].ID), Fields: fields})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d points into %s: %w", len(points), collection, err)
	}
	return nil
}

// Search runs KNN in one collection, optionally restricted to a dataset.
func (r *Repo) Search(
	ctx context.Context, collection string, vector []float32, k int, datasetID *uuid.UUID,
) ([]dompoint.Ranked, error) {
	q := &db.KNNQuery{
		IndexName:    colrepo.IndexName(collection),
		Vector:       vector,
		K:            k,
		ReturnFields: append(append([]string(nil), payloadFields...), "__vector_score"),
	}
	if datasetID != nil {
		q.Tags = []db.TagFilter{{Field: colrepo.FieldDatasetID, Value: datasetID.String()}}
	}

	res, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("knn search %s: %w", collection, err)
	}
	if res == nil {
		return nil, nil
	}

	hits := make([]dompoint.Ranked, 0, len(res.Entries))
	for _, e := range res.Entries {
		p, err := pointFromHash(collection, e.Key, e.Fields)
		if err != nil {
			return nil, err
		}
		hits = append(hits, dompoint.Ranked{Point: p, Collection: collection, Score: e.Score})
	}
	return hits, nil
}

// ListByDataset scrolls every point of a dataset, sorted by column index.
func (r *Repo) ListByDataset(ctx context.Context, collection string, datasetID uuid.UUID) ([]dompoint.Point, error) {
	idx := colrepo.IndexName(collection)
	query := datasetQuery(datasetID)

	var out []dompoint.Point
	for offset := 0; ; offset += pageSize {
		res, err := r.store.SearchList(ctx, idx, query, offset, pageSize, payloadFields)
		if err != nil {
			return nil, fmt.Errorf("scroll %s: %w", collection, err)
		}
		if res == nil || len(res.Entries) == 0 {
			break
		}
		for _, e := range res.Entries {
			p, err := pointFromHash(collection, e.Key, e.Fields)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		if offset+len(res.Entries) >= res.Total {
			break
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Column.Index < out[j].Column.Index })
	return out, nil
}

// DeleteByDataset removes every point of a dataset and returns how many were deleted.
func (r *Repo) DeleteByDataset(ctx context.Context, collection string, datasetID uuid.UUID) (int, error) {
	idx := colrepo.IndexName(collection)
	query := datasetQuery(datasetID)

	total := 0
	for {
		res, err := r.store.SearchList(ctx, idx, query, 0, pageSize, []string{colrepo.FieldDatasetID})
		if err != nil {
			return total, fmt.Errorf("find points of %s in %s: %w", datasetID, collection, err)
		}
		if res == nil || len(res.Entries) == 0 {
			return total, nil
		}

		keys := make([]string, len(res.Entries))
		for i, e := range res.Entries {
			keys[i] = e.Key
		}
		n, err := r.store.DelMulti(ctx, keys)
		if err != nil {
			return total, fmt.Errorf("delete points of %s in %s: %w", datasetID, collection, err)
		}
		total += n
		if n == 0 {
			// index still lists keys that are already gone
			return total, nil
		}
	}
}

func datasetQuery(datasetID uuid.UUID) string {
	return db.TagQuery([]db.TagFilter{{Field: colrepo.FieldDatasetID, Value: datasetID.String()}})
}

func pointKey(collection string, id uuid.UUID) string {
	return colrepo.KeyPrefix(collection) + id.String()
}
