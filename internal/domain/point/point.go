// Package point models vector-index entries for dataset columns.
package point

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/kailas-cloud/tablens/internal/domain/column"
)

// Namespace scopes point identifiers derived with uuid.NewSHA1.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tablens:column-points"))

// ID derives the stable identifier of a column entry.
func ID(datasetID uuid.UUID, columnName string, columnIndex int) uuid.UUID {
	name := datasetID.String() + "/" + columnName + "/" + strconv.Itoa(columnIndex)
	return uuid.NewSHA1(Namespace, []byte(name))
}

// Point is one column embedding with its payload.
type Point struct {
	ID          uuid.UUID
	DatasetID   uuid.UUID
	Column      column.Column
	Description string
	Vector      []float32
}

// New builds a point and derives its identifier.
func New(datasetID uuid.UUID, col column.Column, description string, vector []float32) (Point, error) {
	if datasetID == uuid.Nil {
		return Point{}, fmt.Errorf("dataset id is required")
	}
	if len(vector) == 0 {
		return Point{}, fmt.Errorf("vector is required")
	}
	return Point{
		ID:          ID(datasetID, col.Name, col.Index),
		DatasetID:   datasetID,
		Column:      col,
		Description: description,
		Vector:      vector,
	}, nil
}

// Ranked is a search hit.
type Ranked struct {
	Point
	Collection string
	Score      float64
}
