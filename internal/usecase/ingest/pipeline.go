package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/blob"
	"github.com/kailas-cloud/tablens/internal/columnar"
	"github.com/kailas-cloud/tablens/internal/describe"
	domds "github.com/kailas-cloud/tablens/internal/domain/dataset"
	logpkg "github.com/kailas-cloud/tablens/internal/logger"
	"github.com/kailas-cloud/tablens/internal/metrics"
	"github.com/kailas-cloud/tablens/internal/usecase/vectorindex"
)

const columnarContentType = "application/x-parquet"

// run executes from and every later stage, stopping at the first failure.
func (s *Service) run(ctx context.Context, id uuid.UUID, from domds.Stage, mode vectorindex.Mode) {
	// status writes outlive a cancelled run so the failure is recorded
	persist := context.WithoutCancel(ctx)

	d, err := s.datasets.Get(persist, id)
	if err != nil {
		s.logger.Error("Failed to load dataset for pipeline", zap.String("dataset_id", id.String()), zap.Error(err))
		return
	}
	for _, stage := range from.Downstream() {
		if err := s.runStage(ctx, persist, &d, stage, mode); err != nil {
			return
		}
	}
}

func (s *Service) runStage(ctx, persist context.Context, d *domds.Dataset, stage domds.Stage, mode vectorindex.Mode) error {
	ctx, log := logpkg.WithFields(ctx, s.logger, zap.String("dataset_id", d.ID.String()), zap.String("stage", string(stage)))
	started := time.Now()

	if err := d.Start(stage, s.now().UTC()); err != nil {
		log.Warn("Stage precondition not met", zap.Error(err))
		return err
	}
	if err := s.saveStatus(persist, d, stage); err != nil {
		log.Error("Failed to save stage status", zap.Error(err))
		return err
	}

	err := ctx.Err()
	if err == nil {
		err = s.execute(ctx, persist, d, stage, mode)
	}
	metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(started).Seconds())

	if err == nil {
		err = d.Complete(stage, s.now().UTC())
	}
	if err != nil {
		metrics.StageRunsTotal.WithLabelValues(string(stage), "failed").Inc()
		log.Error("Stage failed", zap.Error(err))
		d.Fail(stage, err.Error(), s.now().UTC())
		if serr := s.saveStatus(persist, d, stage); serr != nil {
			log.Error("Failed to save stage status", zap.Error(serr))
		}
		return err
	}

	if err := s.saveStatus(persist, d, stage); err != nil {
		log.Error("Failed to save stage status", zap.Error(err))
		return err
	}
	metrics.StageRunsTotal.WithLabelValues(string(stage), "completed").Inc()
	log.Info("Stage completed", zap.Duration("duration", time.Since(started)))
	return nil
}

// execute runs the body of one stage. A panic in the stage or in a reader
// library below it becomes the stage error, so the status ends failed
// instead of staying running.
func (s *Service) execute(ctx, persist context.Context, d *domds.Dataset, stage domds.Stage, mode vectorindex.Mode) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logpkg.FromContext(ctx, s.logger).Error("Stage panicked", zap.Any("panic", rec), zap.Stack("stacktrace"))
			err = fmt.Errorf("internal error in %s stage: %v", stage, rec)
		}
	}()
	switch stage {
	case domds.StageParse:
		return s.parse(ctx, persist, d)
	case domds.StageChunk:
		return s.chunk(ctx, persist, d)
	case domds.StageVectorize:
		return s.vectorize(ctx, persist, d, mode)
	}
	return nil
}

func (s *Service) saveStatus(ctx context.Context, d *domds.Dataset, stage domds.Stage) error {
	return s.datasets.SaveStatus(ctx, d.ID, stage, d.Status(stage), d.UpdatedAt)
}

// advance records progress; a failed write only loses the progress value.
func (s *Service) advance(ctx context.Context, d *domds.Dataset, stage domds.Stage, progress int) {
	before := d.Status(stage).Progress
	d.Advance(stage, progress, s.now().UTC())
	if d.Status(stage).Progress == before {
		return
	}
	if err := s.saveStatus(ctx, d, stage); err != nil {
		s.logger.Warn("Failed to save progress",
			zap.String("dataset_id", d.ID.String()), zap.String("stage", string(stage)), zap.Error(err))
	}
}

// parse reads the raw upload, writes the columnar file and replaces the columns.
func (s *Service) parse(ctx, persist context.Context, d *domds.Dataset) error {
	s.advance(persist, d, domds.StageParse, 10)

	raw, err := s.blobs.Get(ctx, d.RawKey)
	if err != nil {
		return fmt.Errorf("load upload: %w", err)
	}
	s.advance(persist, d, domds.StageParse, 20)

	res, err := s.parser.Parse(ctx, raw, d.Name)
	if err != nil {
		return err
	}
	log := logpkg.FromContext(ctx, s.logger)
	if res.Advisory != "" {
		log.Warn("Parse advisory", zap.String("advisory", res.Advisory))
	}
	s.advance(persist, d, domds.StageParse, 40)
	log.Info("File parsed",
		zap.String("strategy", res.Strategy),
		zap.String("encoding", res.Encoding),
		zap.Int("header_depth", res.HeaderDepth),
		zap.Int("rows", res.Table.NumRows()),
		zap.Int("columns", res.Table.NumColumns()),
	)
	s.advance(persist, d, domds.StageParse, 60)

	data, err := columnar.Marshal(res.Table)
	if err != nil {
		return fmt.Errorf("encode columnar file: %w", err)
	}
	key := blob.ColumnarKey(d.ID)
	if _, err := s.blobs.Put(ctx, key, data, columnarContentType); err != nil {
		return fmt.Errorf("store columnar file: %w", err)
	}
	s.advance(persist, d, domds.StageParse, 80)

	if err := s.datasets.ReplaceColumns(persist, d.ID, res.Columns); err != nil {
		return fmt.Errorf("save columns: %w", err)
	}
	d.ColumnarKey = key
	d.RowCount = res.Table.NumRows()
	d.ColumnCount = res.Table.NumColumns()
	d.UpdatedAt = s.now().UTC()
	if err := s.datasets.Update(persist, d); err != nil {
		return fmt.Errorf("save dataset: %w", err)
	}
	return nil
}

// chunk builds the column descriptions and clears the entries of a previous run.
func (s *Service) chunk(ctx, persist context.Context, d *domds.Dataset) error {
	cols, err := s.datasets.Columns(ctx, d.ID)
	if err != nil {
		return fmt.Errorf("load columns: %w", err)
	}
	if len(cols) == 0 {
		return errors.New("dataset has no columns")
	}
	if err := s.index.Delete(ctx, d.ID); err != nil {
		return fmt.Errorf("clear vector entries: %w", err)
	}
	log := logpkg.FromContext(ctx, s.logger)
	for i, c := range cols {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Debug("Column described",
			zap.String("column", c.Name),
			zap.String("description", describe.Column(c)),
		)
		s.advance(persist, d, domds.StageChunk, (i+1)*100/len(cols))
	}
	return nil
}

// vectorize embeds every column into the vector index.
func (s *Service) vectorize(ctx, persist context.Context, d *domds.Dataset, mode vectorindex.Mode) error {
	cols, err := s.datasets.Columns(ctx, d.ID)
	if err != nil {
		return fmt.Errorf("load columns: %w", err)
	}
	progress := func(done, total int) {
		if total > 0 {
			s.advance(persist, d, domds.StageVectorize, done*100/total)
		}
	}
	if err := s.index.Index(ctx, d.ID, cols, mode, progress); err != nil {
		return fmt.Errorf("index columns: %w", err)
	}
	return nil
}
