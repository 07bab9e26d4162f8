// Package vectorindex embeds column descriptions and keeps them in one
// collection per embedding dimension.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/describe"
	"github.com/kailas-cloud/tablens/internal/domain"
	domcol "github.com/kailas-cloud/tablens/internal/domain/collection"
	"github.com/kailas-cloud/tablens/internal/domain/column"
	dompoint "github.com/kailas-cloud/tablens/internal/domain/point"
	"github.com/kailas-cloud/tablens/internal/metrics"
	"github.com/kailas-cloud/tablens/internal/retry"
)

// ProbeText is embedded to learn the model dimension.
const ProbeText = "dimension_probe"

// resolveAttempts bounds re-validation after losing a creation race.
const resolveAttempts = 3

// Service is the vector index manager.
type Service struct {
	embedder    domain.Embedder
	collections CollectionRepository
	points      PointRepository
	base        string
	retry       retry.Policy
	logger      *zap.Logger

	mu     sync.Mutex
	active *domcol.Collection
}

// New creates a vector index manager for the collection family base.
func New(
	embedder domain.Embedder, collections CollectionRepository, points PointRepository,
	base string, policy retry.Policy, logger *zap.Logger,
) (*Service, error) {
	if base == "" {
		base = domcol.DefaultBase
	}
	if err := domcol.ValidateBase(base); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return &Service{
		embedder:    embedder,
		collections: collections,
		points:      points,
		base:        base,
		retry:       policy,
		logger:      logger,
	}, nil
}

// Refresh drops the cached collection so the next call probes the model again.
func (s *Service) Refresh() {
	s.mu.Lock()
	s.active = nil
	s.mu.Unlock()
}

// Collection returns the collection bound to the current model dimension,
// probing and resolving it on first use.
func (s *Service) Collection(ctx context.Context) (domcol.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return *s.active, nil
	}

	probe, err := s.embed(ctx, ProbeText)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("probe dimension: %w", err)
	}
	col, err := s.resolve(ctx, len(probe))
	if err != nil {
		return domcol.Collection{}, err
	}
	s.active = &col
	return col, nil
}

// resolve finds or creates <base>_<dim>. Creation is first-writer-wins: a
// lost race re-validates what the winner wrote.
func (s *Service) resolve(ctx context.Context, dim int) (domcol.Collection, error) {
	name := domcol.Name(s.base, dim)
	for range resolveAttempts {
		col, err := retry.Value(ctx, s.retry, "get collection", func(ctx context.Context) (domcol.Collection, error) {
			return s.collections.Get(ctx, name)
		})
		switch {
		case errors.Is(err, domain.ErrNotFound):
			created, cerr := s.create(ctx, dim)
			if errors.Is(cerr, domain.ErrAlreadyExists) {
				continue
			}
			return created, cerr
		case err != nil:
			return domcol.Collection{}, fmt.Errorf("get collection %s: %w", name, err)
		case col.VectorDim() == dim:
			return col, nil
		}

		n, err := s.count(ctx, name)
		if err != nil {
			return domcol.Collection{}, fmt.Errorf("count collection %s: %w", name, err)
		}
		if n > 0 {
			return domcol.Collection{}, &domain.DimensionConflictError{
				Collection: name, Existing: col.VectorDim(), Requested: dim, Points: n,
			}
		}
		s.logger.Warn("Recreating empty collection with new dimension",
			zap.String("collection", name),
			zap.Int("old_dim", col.VectorDim()),
			zap.Int("new_dim", dim),
		)
		err = s.retry.Do(ctx, "drop collection", func(ctx context.Context) error {
			return s.collections.Delete(ctx, name)
		})
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domcol.Collection{}, fmt.Errorf("drop collection %s: %w", name, err)
		}
	}
	return domcol.Collection{}, fmt.Errorf("resolve collection %s: creation kept racing", name)
}

func (s *Service) create(ctx context.Context, dim int) (domcol.Collection, error) {
	col, err := domcol.New(s.base, dim)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	err = s.retry.Do(ctx, "create collection", func(ctx context.Context) error {
		return s.collections.Create(ctx, col)
	})
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("create collection %s: %w", col.Name(), err)
	}
	s.logger.Info("Collection created", zap.String("collection", col.Name()), zap.Int("dim", dim))
	return col, nil
}

// Index replaces the points of a dataset with one point per column.
func (s *Service) Index(
	ctx context.Context, datasetID uuid.UUID, columns []column.Column, mode Mode, progress ProgressFunc,
) error {
	if progress == nil {
		progress = func(int, int) {}
	}
	col, err := s.Collection(ctx)
	if err != nil {
		return err
	}
	if err := s.Delete(ctx, datasetID); err != nil {
		return fmt.Errorf("clear previous points: %w", err)
	}

	var written int
	for i, c := range columns {
		err := s.indexColumn(ctx, &col, datasetID, c)
		switch {
		case err == nil:
			written++
		case errors.Is(err, domain.ErrDimensionConflict), mode == Strict, ctx.Err() != nil:
			return fmt.Errorf("index column %q: %w", c.Name, err)
		default:
			s.logger.Warn("Skipping column",
				zap.String("dataset_id", datasetID.String()),
				zap.String("column", c.Name),
				zap.Error(err),
			)
		}
		progress(i+1, len(columns))
	}

	if mode == Strict && written == 0 && len(columns) > 0 {
		return fmt.Errorf("index dataset %s: no column was indexed", datasetID)
	}
	s.logger.Info("Dataset indexed",
		zap.String("dataset_id", datasetID.String()),
		zap.String("collection", col.Name()),
		zap.String("mode", mode.String()),
		zap.Int("columns", len(columns)),
		zap.Int("points", written),
	)
	return nil
}

// indexColumn describes, embeds and upserts one column. A vector whose
// dimension differs from col switches to the matching collection when col
// is still empty and is a conflict otherwise.
func (s *Service) indexColumn(
	ctx context.Context, col *domcol.Collection, datasetID uuid.UUID, c column.Column,
) error {
	desc := describe.Column(c)
	vec, err := s.embed(ctx, desc)
	if err != nil {
		return fmt.Errorf("embed description: %w", err)
	}

	if len(vec) != col.VectorDim() {
		next, err := s.switchDimension(ctx, *col, len(vec))
		if err != nil {
			return err
		}
		*col = next
	}

	p, err := dompoint.New(datasetID, c, desc, vec)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	err = s.retry.Do(ctx, "upsert point", func(ctx context.Context) error {
		return s.points.Upsert(ctx, col.Name(), []dompoint.Point{p})
	})
	if err != nil {
		return fmt.Errorf("upsert point: %w", err)
	}
	return nil
}

func (s *Service) switchDimension(ctx context.Context, current domcol.Collection, dim int) (domcol.Collection, error) {
	n, err := s.count(ctx, current.Name())
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("count collection %s: %w", current.Name(), err)
	}
	if n > 0 {
		return domcol.Collection{}, &domain.DimensionConflictError{
			Collection: current.Name(), Existing: current.VectorDim(), Requested: dim, Points: n,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.resolve(ctx, dim)
	if err != nil {
		return domcol.Collection{}, err
	}
	s.active = &next
	return next, nil
}

// Search embeds query and fans out KNN over every collection of the
// family whose dimension matches the query vector.
func (s *Service) Search(ctx context.Context, query string, topK int, datasetID *uuid.UUID) ([]dompoint.Ranked, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive", domain.ErrInvalidInput)
	}
	vec, err := s.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	targets, err := s.family(ctx, len(vec))
	if err != nil {
		return nil, err
	}
	metrics.SearchCollections.Observe(float64(len(targets)))

	perCollection := make([][]dompoint.Ranked, len(targets))
	var wg sync.WaitGroup
	for i, name := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := retry.Value(ctx, s.retry, "search collection", func(ctx context.Context) ([]dompoint.Ranked, error) {
				return s.points.Search(ctx, name, vec, topK, datasetID)
			})
			if err != nil {
				metrics.SearchCollectionErrorsTotal.WithLabelValues(name).Inc()
				s.logger.Warn("Collection search failed", zap.String("collection", name), zap.Error(err))
				return
			}
			perCollection[i] = hits
		}()
	}
	wg.Wait()

	var merged []dompoint.Ranked
	for _, hits := range perCollection {
		merged = append(merged, hits...)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, nil
}

// family lists collection names of the base family, restricted to dim when dim > 0.
func (s *Service) family(ctx context.Context, dim int) ([]string, error) {
	all, err := retry.Value(ctx, s.retry, "list collections", s.collections.List)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	var names []string
	for _, c := range all {
		d, ok := domcol.DimensionOf(s.base, c.Name())
		if !ok {
			continue
		}
		if dim > 0 && (d != dim || c.VectorDim() != dim) {
			continue
		}
		names = append(names, c.Name())
	}
	return names, nil
}

// Delete removes every point of the dataset from all collections of the family.
func (s *Service) Delete(ctx context.Context, datasetID uuid.UUID) error {
	names, err := s.family(ctx, 0)
	if err != nil {
		return err
	}
	for _, name := range names {
		n, err := retry.Value(ctx, s.retry, "delete points", func(ctx context.Context) (int, error) {
			return s.points.DeleteByDataset(ctx, name, datasetID)
		})
		if err != nil {
			return fmt.Errorf("delete points of %s from %s: %w", datasetID, name, err)
		}
		if n > 0 {
			s.logger.Debug("Points deleted",
				zap.String("dataset_id", datasetID.String()),
				zap.String("collection", name),
				zap.Int("count", n),
			)
		}
	}
	return nil
}

// Columns returns the stored points of a dataset from the active
// collection, sorted by column index.
func (s *Service) Columns(ctx context.Context, datasetID uuid.UUID) ([]dompoint.Point, error) {
	col, err := s.Collection(ctx)
	if err != nil {
		return nil, err
	}
	pts, err := retry.Value(ctx, s.retry, "list points", func(ctx context.Context) ([]dompoint.Point, error) {
		return s.points.ListByDataset(ctx, col.Name(), datasetID)
	})
	if err != nil {
		return nil, fmt.Errorf("list points: %w", err)
	}
	return pts, nil
}

func (s *Service) count(ctx context.Context, name string) (int, error) {
	return retry.Value(ctx, s.retry, "count collection", func(ctx context.Context) (int, error) {
		return s.collections.Count(ctx, name)
	})
}

func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	res, err := retry.Value(ctx, s.retry, "embed", func(ctx context.Context) (domain.EmbeddingResult, error) {
		return s.embedder.Embed(ctx, text)
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // callers add context
	}
	if res.Dimension() == 0 {
		return nil, fmt.Errorf("%w: empty embedding", domain.ErrEmbeddingProviderError)
	}
	return res.Embedding, nil
}
