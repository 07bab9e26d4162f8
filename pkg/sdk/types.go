package tablens

import (
	"time"

	"github.com/kailas-cloud/tablens/internal/domain/column"
	domds "github.com/kailas-cloud/tablens/internal/domain/dataset"
	dompoint "github.com/kailas-cloud/tablens/internal/domain/point"
	askuc "github.com/kailas-cloud/tablens/internal/usecase/ask"
)

// Stage names one of the three pipeline stages of a dataset.
type Stage string

// Pipeline stages in order.
const (
	StageParse     Stage = "parse"
	StageChunk     Stage = "chunk"
	StageVectorize Stage = "vectorize"
)

// Stage states.
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// StageStatus is the tracked status of one stage.
type StageStatus struct {
	State    string
	Progress int
	Error    string
}

// Dataset is one uploaded file and its pipeline state.
type Dataset struct {
	ID          string
	Name        string
	LogicalName string
	ByteSize    int64
	Rows        int
	Columns     int
	Parse       StageStatus
	Chunk       StageStatus
	Vectorize   StageStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Searchable reports whether every stage completed.
func (d Dataset) Searchable() bool { return d.Vectorize.State == StateCompleted }

// FailedStage returns the first failed stage, if any.
func (d Dataset) FailedStage() (Stage, StageStatus, bool) {
	for _, s := range []struct {
		stage  Stage
		status StageStatus
	}{{StageParse, d.Parse}, {StageChunk, d.Chunk}, {StageVectorize, d.Vectorize}} {
		if s.status.State == StateFailed {
			return s.stage, s.status, true
		}
	}
	return "", StageStatus{}, false
}

// Column is one inferred column of a dataset.
type Column struct {
	Name        string
	Label       string
	Index       int
	Type        string
	NullCount   int
	UniqueCount int
	Samples     []string
}

// ColumnHit is one column search result.
type ColumnHit struct {
	DatasetID   string
	Column      string
	Label       string
	Type        string
	Description string
	Score       float64
}

// DatasetRef names a dataset used for an answer.
type DatasetRef struct {
	ID          string
	LogicalName string
}

// Query is the query run against one dataset.
type Query struct {
	DatasetID string
	SQL       string
	Fallback  bool
	Reason    string
}

// Visualization is the suggested presentation of an answer.
type Visualization struct {
	Mode       string // chart, table, card or text
	Confidence float64
	Reason     string
	Metadata   map[string]any
	Source     string // rules or model
}

// Answer is the outcome of a question.
type Answer struct {
	Question      string
	Datasets      []DatasetRef
	Queries       []Query
	Columns       []string
	Rows          [][]any
	Failures      map[string]string // dataset id -> error
	Visualization Visualization
}

func stageStatusFromDomain(s domds.Status) StageStatus {
	return StageStatus{State: string(s.State), Progress: s.Progress, Error: s.Error}
}

func datasetFromDomain(d *domds.Dataset) Dataset {
	return Dataset{
		ID:          d.ID.String(),
		Name:        d.Name,
		LogicalName: d.LogicalName,
		ByteSize:    d.ByteSize,
		Rows:        d.RowCount,
		Columns:     d.ColumnCount,
		Parse:       stageStatusFromDomain(d.Parse),
		Chunk:       stageStatusFromDomain(d.Chunk),
		Vectorize:   stageStatusFromDomain(d.Vectorize),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func columnFromDomain(c *column.Column) Column {
	return Column{
		Name:        c.Name,
		Label:       c.Label,
		Index:       c.Index,
		Type:        string(c.Type),
		NullCount:   c.Stats.NullCount,
		UniqueCount: c.Stats.UniqueCount,
		Samples:     c.Samples,
	}
}

func hitFromDomain(r *dompoint.Ranked) ColumnHit {
	return ColumnHit{
		DatasetID:   r.DatasetID.String(),
		Column:      r.Column.Name,
		Label:       r.Column.Label,
		Type:        string(r.Column.Type),
		Description: r.Description,
		Score:       r.Score,
	}
}

func answerFromDomain(a *askuc.Answer) Answer {
	out := Answer{
		Question: a.Question,
		Visualization: Visualization{
			Mode:       string(a.Visualization.Mode),
			Confidence: a.Visualization.Confidence,
			Reason:     a.Visualization.Reason,
			Metadata:   a.Visualization.Metadata,
			Source:     string(a.Visualization.Source),
		},
	}
	for _, d := range a.Datasets {
		out.Datasets = append(out.Datasets, DatasetRef{ID: d.ID.String(), LogicalName: d.LogicalName})
	}
	for _, q := range a.Queries {
		out.Queries = append(out.Queries, Query{
			DatasetID: q.DatasetID.String(),
			SQL:       q.Query,
			Fallback:  q.Fallback,
			Reason:    q.Reason,
		})
	}
	if a.Result != nil {
		out.Columns = a.Result.Columns
		out.Rows = a.Result.Rows
	}
	if len(a.Failures) > 0 {
		out.Failures = make(map[string]string, len(a.Failures))
		for _, f := range a.Failures {
			out.Failures[f.DatasetID] = f.Error
		}
	}
	return out
}
