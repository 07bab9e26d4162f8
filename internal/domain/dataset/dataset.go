// Package dataset models an uploaded tabular file and its pipeline state.
package dataset

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/tablens/internal/domain"
)

// Dataset is one uploaded file and its derived artifacts.
type Dataset struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	LogicalName string    `json:"logical_name"`
	ContentHash string    `json:"content_hash"`
	ByteSize    int64     `json:"byte_size"`
	RowCount    int       `json:"row_count"`
	ColumnCount int       `json:"column_count"`
	RawKey      string    `json:"raw_key"`
	ColumnarKey string    `json:"columnar_key,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Parse       Status    `json:"parse"`
	Chunk       Status    `json:"chunk"`
	Vectorize   Status    `json:"vectorize"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// New creates a dataset in its upload-time state.
func New(id uuid.UUID, filename, logicalName, contentHash string, size int64, now time.Time) (Dataset, error) {
	if id == uuid.Nil {
		return Dataset{}, fmt.Errorf("%w: dataset id is required", domain.ErrInvalidInput)
	}
	if filename == "" {
		return Dataset{}, fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}
	if logicalName == "" {
		logicalName = strings.TrimSuffix(filename, filepath.Ext(filename))
	}
	return Dataset{
		ID:          id,
		Name:        filename,
		LogicalName: logicalName,
		ContentHash: contentHash,
		ByteSize:    size,
		Parse:       Pending(),
		Chunk:       Pending(),
		Vectorize:   Pending(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// TableName is the dataset-scoped relation name used by the query engine.
func (d *Dataset) TableName() string {
	return "dataset_" + strings.ReplaceAll(d.ID.String(), "-", "_")
}

// Status returns the status of a stage.
func (d *Dataset) Status(s Stage) Status {
	switch s {
	case StageParse:
		return d.Parse
	case StageChunk:
		return d.Chunk
	default:
		return d.Vectorize
	}
}

func (d *Dataset) set(s Stage, st Status) {
	switch s {
	case StageParse:
		d.Parse = st
	case StageChunk:
		d.Chunk = st
	case StageVectorize:
		d.Vectorize = st
	}
}

// Ready reports whether the columnar file is available for queries.
func (d *Dataset) Ready() bool {
	return d.Parse.State == StateCompleted && d.ColumnarKey != ""
}

// CheckPrecondition reports whether the upstream stage allows s to run.
func (d *Dataset) CheckPrecondition(s Stage) error {
	switch s {
	case StageChunk:
		if d.Parse.State != StateCompleted {
			return fmt.Errorf("%w: chunk requires parse completed, parse is %s", domain.ErrStagePrecondition, d.Parse.State)
		}
	case StageVectorize:
		if d.Chunk.State != StateCompleted {
			return fmt.Errorf("%w: vectorize requires chunk completed, chunk is %s", domain.ErrStagePrecondition, d.Chunk.State)
		}
	}
	return nil
}

// Start moves a stage to running with progress 0.
func (d *Dataset) Start(s Stage, now time.Time) error {
	if err := d.CheckPrecondition(s); err != nil {
		return err
	}
	d.set(s, Status{State: StateRunning})
	d.UpdatedAt = now
	return nil
}

// Advance raises the progress of a running stage. Progress never decreases.
func (d *Dataset) Advance(s Stage, progress int, now time.Time) {
	st := d.Status(s)
	if st.State != StateRunning {
		return
	}
	progress = min(max(progress, 0), 99)
	if progress <= st.Progress {
		return
	}
	st.Progress = progress
	d.set(s, st)
	d.UpdatedAt = now
}

// Complete marks a stage completed at progress 100.
func (d *Dataset) Complete(s Stage, now time.Time) error {
	if err := d.CheckPrecondition(s); err != nil {
		return err
	}
	d.set(s, Status{State: StateCompleted, Progress: 100})
	d.UpdatedAt = now
	return nil
}

// Fail marks a stage failed, keeping its last progress.
func (d *Dataset) Fail(s Stage, cause string, now time.Time) {
	st := d.Status(s)
	st.State = StateFailed
	st.Error = cause
	d.set(s, st)
	d.UpdatedAt = now
}

// Reset moves s and every downstream stage back to pending.
func (d *Dataset) Reset(s Stage, now time.Time) {
	for _, st := range s.Downstream() {
		d.set(st, Pending())
	}
	d.UpdatedAt = now
}
