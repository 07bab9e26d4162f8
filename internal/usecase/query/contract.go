package query

import (
	"context"

	"github.com/kailas-cloud/tablens/internal/domain/result"
	"github.com/kailas-cloud/tablens/internal/domain/table"
)

// BlobReader loads stored columnar files.
type BlobReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Engine runs SQL over a loaded table.
type Engine interface {
	Run(ctx context.Context, name string, tbl *table.Table, kinds []table.Kind, query string) (*result.Set, error)
}

// Decoder turns a columnar file back into a table.
type Decoder func(data []byte) (*table.Table, []table.Kind, error)
