package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/tablens/internal/domain/column"
	domds "github.com/kailas-cloud/tablens/internal/domain/dataset"
	"github.com/kailas-cloud/tablens/internal/parser"
	"github.com/kailas-cloud/tablens/internal/repository/lock"
	"github.com/kailas-cloud/tablens/internal/usecase/vectorindex"
)

// DatasetRepository persists datasets, their stage statuses and columns.
//
//nolint:interfacebloat // the pipeline owns the full dataset lifecycle
type DatasetRepository interface {
	Create(ctx context.Context, d *domds.Dataset) error
	Get(ctx context.Context, id uuid.UUID) (domds.Dataset, error)
	FindByHash(ctx context.Context, hash string) (domds.Dataset, error)
	List(ctx context.Context) ([]domds.Dataset, error)
	Update(ctx context.Context, d *domds.Dataset) error
	SaveStatus(ctx context.Context, id uuid.UUID, stage domds.Stage, st domds.Status, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	ReplaceColumns(ctx context.Context, id uuid.UUID, cols []column.Column) error
	Columns(ctx context.Context, id uuid.UUID) ([]column.Column, error)
}

// BlobStore keeps raw uploads and columnar files.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) (bool, error)
}

// Parser reads raw bytes into a typed table.
type Parser interface {
	Parse(ctx context.Context, data []byte, filename string) (*parser.Result, error)
}

// Indexer maintains the vector entries of a dataset.
type Indexer interface {
	Index(ctx context.Context, datasetID uuid.UUID, columns []column.Column, mode vectorindex.Mode, progress vectorindex.ProgressFunc) error
	Delete(ctx context.Context, datasetID uuid.UUID) error
}

// Locker hands out per-dataset leases.
type Locker interface {
	Acquire(ctx context.Context, datasetID uuid.UUID) (*lock.Lease, error)
}

// Upload is one file submitted for ingestion.
type Upload struct {
	Filename    string
	LogicalName string
	Data        []byte
}
