package ask

import (
	"context"

	"github.com/google/uuid"

	"github.com/kailas-cloud/tablens/internal/domain/column"
	domds "github.com/kailas-cloud/tablens/internal/domain/dataset"
	dompoint "github.com/kailas-cloud/tablens/internal/domain/point"
	"github.com/kailas-cloud/tablens/internal/domain/result"
	"github.com/kailas-cloud/tablens/internal/domain/viz"
	"github.com/kailas-cloud/tablens/internal/usecase/query"
	"github.com/kailas-cloud/tablens/internal/usecase/selector"
)

// Datasets loads dataset metadata.
type Datasets interface {
	GetMany(ctx context.Context, ids []uuid.UUID) ([]domds.Dataset, error)
	Columns(ctx context.Context, id uuid.UUID) ([]column.Column, error)
}

// Searcher finds columns similar to a question.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, datasetID *uuid.UUID) ([]dompoint.Ranked, error)
}

// Selector picks datasets and drafts queries.
type Selector interface {
	Select(ctx context.Context, question string, candidates []selector.Candidate) ([]uuid.UUID, error)
	DraftQuery(ctx context.Context, question string, candidate selector.Candidate) (selector.Draft, error)
}

// Executor runs drafted queries.
type Executor interface {
	ExecuteMany(ctx context.Context, targets []query.Target) (*result.Set, []query.Failure, error)
}

// Classifier decides the presentation of a result.
type Classifier interface {
	Classify(ctx context.Context, question string, set *result.Set) (viz.Decision, error)
}

// Request is one question, optionally bound to explicit datasets.
type Request struct {
	Question   string
	DatasetIDs []uuid.UUID
}

// DatasetRef names a dataset used for an answer.
type DatasetRef struct {
	ID          uuid.UUID `json:"id"`
	LogicalName string    `json:"logical_name"`
}

// PlannedQuery is the query run against one dataset.
type PlannedQuery struct {
	DatasetID uuid.UUID `json:"dataset_id"`
	selector.Draft
}

// Answer is the full outcome of a question.
type Answer struct {
	Question      string          `json:"question"`
	Datasets      []DatasetRef    `json:"datasets"`
	Queries       []PlannedQuery  `json:"queries"`
	Result        *result.Set     `json:"result"`
	Failures      []query.Failure `json:"failures,omitempty"`
	Visualization viz.Decision    `json:"visualization"`
	Source        string          `json:"source"`
}
