// Package ingest accepts uploads and drives the parse, chunk and vectorize
// stages of each dataset in the background.
package ingest

import (
	"context"
	"crypto/md5" //nolint:gosec // content fingerprint for deduplication, not security
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/blob"
	"github.com/kailas-cloud/tablens/internal/domain"
	"github.com/kailas-cloud/tablens/internal/domain/column"
	domds "github.com/kailas-cloud/tablens/internal/domain/dataset"
	"github.com/kailas-cloud/tablens/internal/repository/lock"
	"github.com/kailas-cloud/tablens/internal/usecase/vectorindex"
)

// DefaultFailReason is recorded when a stage is marked failed without a reason.
const DefaultFailReason = "marked failed by operator"

// Service is the ingestion pipeline.
type Service struct {
	datasets DatasetRepository
	blobs    BlobStore
	parser   Parser
	index    Indexer
	locks    Locker
	runner   *Runner
	limits   Limits
	logger   *zap.Logger
	now      func() time.Time
}

// New creates the ingestion service.
func New(
	datasets DatasetRepository, blobs BlobStore, p Parser, index Indexer,
	locks Locker, runner *Runner, limits Limits, logger *zap.Logger,
) *Service {
	return &Service{
		datasets: datasets,
		blobs:    blobs,
		parser:   p,
		index:    index,
		locks:    locks,
		runner:   runner,
		limits:   limits.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
}

// Upload validates and stores a file, then starts its pipeline in the
// background. The returned dataset has every stage pending.
func (s *Service) Upload(ctx context.Context, in Upload) (domds.Dataset, error) {
	if err := s.limits.Validate(in.Filename, int64(len(in.Data))); err != nil {
		return domds.Dataset{}, err
	}

	sum := md5.Sum(in.Data) //nolint:gosec // see import
	hash := hex.EncodeToString(sum[:])
	existing, err := s.datasets.FindByHash(ctx, hash)
	switch {
	case err == nil:
		return domds.Dataset{}, &domain.DuplicateDatasetError{ExistingID: existing.ID.String()}
	case !errors.Is(err, domain.ErrNotFound):
		return domds.Dataset{}, fmt.Errorf("check duplicate: %w", err)
	}

	now := s.now().UTC()
	d, err := domds.New(uuid.New(), in.Filename, in.LogicalName, hash, int64(len(in.Data)), now)
	if err != nil {
		return domds.Dataset{}, err
	}
	d.RawKey = blob.UploadKey(d.ID, in.Filename, now)
	d.ContentType = contentType(in.Filename)

	// the lease comes first so a dataset is never stored without a run
	lease, err := s.locks.Acquire(ctx, d.ID)
	if err != nil {
		return domds.Dataset{}, err
	}
	if _, err := s.blobs.Put(ctx, d.RawKey, in.Data, d.ContentType); err != nil {
		s.release(lease, d.ID)
		return domds.Dataset{}, fmt.Errorf("store upload: %w", err)
	}
	if err := s.datasets.Create(ctx, &d); err != nil {
		_, _ = s.blobs.Delete(ctx, d.RawKey)
		s.release(lease, d.ID)
		return domds.Dataset{}, fmt.Errorf("create dataset: %w", err)
	}

	if err := s.start(d.ID, domds.StageParse, vectorindex.BestEffort, lease); err != nil {
		return domds.Dataset{}, err
	}

	s.logger.Info("Dataset uploaded",
		zap.String("dataset_id", d.ID.String()),
		zap.String("name", d.Name),
		zap.Int64("bytes", d.ByteSize),
	)
	return d, nil
}

// Get returns a dataset with its stage statuses.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domds.Dataset, error) {
	d, err := s.datasets.Get(ctx, id)
	if err != nil {
		return domds.Dataset{}, fmt.Errorf("get dataset: %w", err)
	}
	return d, nil
}

// List returns every dataset, newest first.
func (s *Service) List(ctx context.Context) ([]domds.Dataset, error) {
	out, err := s.datasets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return out, nil
}

// Columns returns the inferred columns of a dataset.
func (s *Service) Columns(ctx context.Context, id uuid.UUID) ([]column.Column, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	cols, err := s.datasets.Columns(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	return cols, nil
}

// Retry resets stage and every later stage to pending and reruns them in
// strict mode. It fails with domain.ErrStagePrecondition when the upstream
// stage is not completed and with domain.ErrStageBusy while a run holds the
// dataset.
func (s *Service) Retry(ctx context.Context, id uuid.UUID, stage domds.Stage) (domds.Dataset, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return domds.Dataset{}, err
	}
	if err := d.CheckPrecondition(stage); err != nil {
		return domds.Dataset{}, err
	}

	lease, err := s.locks.Acquire(ctx, id)
	if err != nil {
		return domds.Dataset{}, err
	}
	// re-read under the lease; a run may have finished in between
	if d, err = s.Get(ctx, id); err != nil {
		s.release(lease, id)
		return domds.Dataset{}, err
	}
	if err := d.CheckPrecondition(stage); err != nil {
		s.release(lease, id)
		return domds.Dataset{}, err
	}
	d.Reset(stage, s.now().UTC())
	if err := s.datasets.Update(ctx, &d); err != nil {
		s.release(lease, id)
		return domds.Dataset{}, fmt.Errorf("reset stages: %w", err)
	}
	if err := s.start(id, stage, vectorindex.Strict, lease); err != nil {
		return domds.Dataset{}, err
	}

	s.logger.Info("Stage retry scheduled", zap.String("dataset_id", id.String()), zap.String("stage", string(stage)))
	return d, nil
}

// MarkFailed overwrites the status of a stage with a failure. It takes no
// lock and is the way out of a stage stuck in running.
func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID, stage domds.Stage, reason string) (domds.Dataset, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return domds.Dataset{}, err
	}
	if reason == "" {
		reason = DefaultFailReason
	}
	now := s.now().UTC()
	d.Fail(stage, reason, now)
	if err := s.datasets.SaveStatus(ctx, id, stage, d.Status(stage), now); err != nil {
		return domds.Dataset{}, fmt.Errorf("mark failed: %w", err)
	}
	s.logger.Warn("Stage marked failed",
		zap.String("dataset_id", id.String()),
		zap.String("stage", string(stage)),
		zap.String("reason", reason),
	)
	return d, nil
}

// Delete removes a dataset with its vector entries and blobs.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	lease, err := s.locks.Acquire(ctx, id)
	if err != nil {
		return err
	}
	defer s.release(lease, id)

	d, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.index.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete vector entries: %w", err)
	}
	for _, key := range []string{d.RawKey, d.ColumnarKey} {
		if key == "" {
			continue
		}
		if _, err := s.blobs.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete blob %s: %w", key, err)
		}
	}
	if err := s.datasets.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}

	s.logger.Info("Dataset deleted", zap.String("dataset_id", id.String()))
	return nil
}

// start hands lease to a background run of from and its downstream stages.
func (s *Service) start(id uuid.UUID, from domds.Stage, mode vectorindex.Mode, lease *lock.Lease) error {
	err := s.runner.Go("pipeline:"+id.String(), func(ctx context.Context) {
		defer s.release(lease, id)
		s.run(ctx, id, from, mode)
	})
	if err != nil {
		s.release(lease, id)
		return fmt.Errorf("schedule pipeline: %w", err)
	}
	return nil
}

func (s *Service) release(lease *lock.Lease, id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := lease.Release(ctx); err != nil {
		s.logger.Warn("Failed to release dataset lock", zap.String("dataset_id", id.String()), zap.Error(err))
	}
}
