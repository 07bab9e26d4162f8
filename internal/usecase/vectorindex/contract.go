package vectorindex

import (
	"context"

	"github.com/google/uuid"

	domcol "github.com/kailas-cloud/tablens/internal/domain/collection"
	dompoint "github.com/kailas-cloud/tablens/internal/domain/point"
)

// CollectionRepository stores dimension-bound collections.
type CollectionRepository interface {
	Create(ctx context.Context, col domcol.Collection) error
	Get(ctx context.Context, name string) (domcol.Collection, error)
	List(ctx context.Context) ([]domcol.Collection, error)
	Count(ctx context.Context, name string) (int, error)
	Delete(ctx context.Context, name string) error
}

// PointRepository stores column points inside a collection.
type PointRepository interface {
	Upsert(ctx context.Context, collection string, points []dompoint.Point) error
	Search(ctx context.Context, collection string, vector []float32, k int, datasetID *uuid.UUID) ([]dompoint.Ranked, error)
	ListByDataset(ctx context.Context, collection string, datasetID uuid.UUID) ([]dompoint.Point, error)
	DeleteByDataset(ctx context.Context, collection string, datasetID uuid.UUID) (int, error)
}

// Mode selects how indexing reacts to a failing column.
type Mode int

const (
	// BestEffort logs and skips a failing column.
	BestEffort Mode = iota
	// Strict aborts on the first failing column.
	Strict
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "best_effort"
}

// ProgressFunc receives the number of processed columns out of total.
type ProgressFunc func(done, total int)
