package collection

import (
	"github.com/kailas-cloud/tablens/internal/db"
)

// Point hash field names shared with the point repository.
const (
	FieldDatasetID   = "dataset_id"
	FieldColumnName  = "column_name"
	FieldColumnIndex = "column_index"
	FieldColumn      = "column_json"
	FieldDescription = "description"
	FieldVector      = "__vector"
)

// buildIndex creates the FT index of one column collection. Only the
// dataset tag, the column name and the description are indexed; the
// column index and column JSON ride along in the hash.
func buildIndex(name string, vectorDim int, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	return db.NewIndex(IndexName(name), KeyPrefix(name)).
		Tag(FieldDatasetID).
		Tag(FieldColumnName).
		Text(FieldDescription).
		Vector(FieldVector, "vector", vectorDim).
		HNSW(hnsw.M, hnsw.EFConstruct).
		Build()
}
