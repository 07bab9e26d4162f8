package tablens

import (
	"context"
	"fmt"
	"time"

	domds "github.com/kailas-cloud/tablens/internal/domain/dataset"
	"github.com/kailas-cloud/tablens/internal/usecase/ingest"
)

// DefaultPollInterval is used by Wait when interval is not positive.
const DefaultPollInterval = time.Second

// DatasetService uploads datasets and tracks their pipeline.
type DatasetService struct {
	svc datasetUseCase
	obs *observer
}

// UploadRequest is one file to ingest. LogicalName defaults to the
// filename without its extension.
type UploadRequest struct {
	Filename    string
	LogicalName string
	Data        []byte
}

// Upload stores a file and starts its pipeline in the background.
// Identical content already uploaded yields ErrAlreadyExists.
func (s *DatasetService) Upload(ctx context.Context, req UploadRequest) (ds Dataset, err error) {
	start := time.Now()
	defer func() { s.obs.observe("upload", start, err) }()

	d, err := s.svc.Upload(ctx, ingest.Upload{
		Filename:    req.Filename,
		LogicalName: req.LogicalName,
		Data:        req.Data,
	})
	if err != nil {
		return Dataset{}, fmt.Errorf("upload %s: %w", req.Filename, err)
	}
	return datasetFromDomain(&d), nil
}

// Get returns a dataset with its current stage statuses.
func (s *DatasetService) Get(ctx context.Context, id string) (ds Dataset, err error) {
	start := time.Now()
	defer func() { s.obs.observe("get_dataset", start, err) }()

	uid, err := parseID(id)
	if err != nil {
		return Dataset{}, err
	}
	d, err := s.svc.Get(ctx, uid)
	if err != nil {
		return Dataset{}, fmt.Errorf("get dataset %s: %w", id, err)
	}
	return datasetFromDomain(&d), nil
}

// List returns every dataset, newest first.
func (s *DatasetService) List(ctx context.Context) (out []Dataset, err error) {
	start := time.Now()
	defer func() { s.obs.observe("list_datasets", start, err) }()

	all, err := s.svc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	out = make([]Dataset, len(all))
	for i := range all {
		out[i] = datasetFromDomain(&all[i])
	}
	return out, nil
}

// Columns returns the inferred columns of a dataset in order.
func (s *DatasetService) Columns(ctx context.Context, id string) (out []Column, err error) {
	start := time.Now()
	defer func() { s.obs.observe("list_columns", start, err) }()

	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	cols, err := s.svc.Columns(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list columns %s: %w", id, err)
	}
	out = make([]Column, len(cols))
	for i := range cols {
		out[i] = columnFromDomain(&cols[i])
	}
	return out, nil
}

// Retry resets stage and the stages after it, then runs them again.
// A stage still running yields ErrStageBusy.
func (s *DatasetService) Retry(ctx context.Context, id string, stage Stage) (ds Dataset, err error) {
	start := time.Now()
	defer func() { s.obs.observe("retry_stage", start, err) }()

	uid, err := parseID(id)
	if err != nil {
		return Dataset{}, err
	}
	st, err := domds.ParseStage(string(stage))
	if err != nil {
		return Dataset{}, err
	}
	d, err := s.svc.Retry(ctx, uid, st)
	if err != nil {
		return Dataset{}, fmt.Errorf("retry %s of %s: %w", stage, id, err)
	}
	return datasetFromDomain(&d), nil
}

// Delete removes a dataset with its columns, files and vector entries.
func (s *DatasetService) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("delete_dataset", start, err) }()

	uid, err := parseID(id)
	if err != nil {
		return err
	}
	if err := s.svc.Delete(ctx, uid); err != nil {
		return fmt.Errorf("delete dataset %s: %w", id, err)
	}
	return nil
}

// Wait polls a dataset until it is searchable or a stage fails. A failed
// stage yields ErrStageFailed together with the last dataset state.
func (s *DatasetService) Wait(ctx context.Context, id string, interval time.Duration) (Dataset, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ds, err := s.Get(ctx, id)
		if err != nil {
			return Dataset{}, err
		}
		if stage, st, failed := ds.FailedStage(); failed {
			return ds, fmt.Errorf("%w: %s: %s", ErrStageFailed, stage, st.Error)
		}
		if ds.Searchable() {
			return ds, nil
		}

		select {
		case <-ctx.Done():
			return ds, ctx.Err()
		case <-ticker.C:
		}
	}
}
