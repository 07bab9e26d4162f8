// Package ask answers a natural-language question from the uploaded datasets.
package ask

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/domain"
	domds "github.com/kailas-cloud/tablens/internal/domain/dataset"
	logpkg "github.com/kailas-cloud/tablens/internal/logger"
	"github.com/kailas-cloud/tablens/internal/usecase/query"
	"github.com/kailas-cloud/tablens/internal/usecase/selector"
)

// Defaults for cold search.
const (
	DefaultSearchTopK  = 10
	DefaultMaxDatasets = 3
)

// Config tunes dataset discovery.
type Config struct {
	SearchTopK  int
	MaxDatasets int
}

// Service answers questions.
type Service struct {
	datasets   Datasets
	search     Searcher
	selector   Selector
	executor   Executor
	classifier Classifier
	cfg        Config
	logger     *zap.Logger
}

// New creates the ask service.
func New(
	datasets Datasets, search Searcher, sel Selector, exec Executor, classifier Classifier,
	cfg Config, logger *zap.Logger,
) *Service {
	if cfg.SearchTopK <= 0 {
		cfg.SearchTopK = DefaultSearchTopK
	}
	if cfg.MaxDatasets <= 0 {
		cfg.MaxDatasets = DefaultMaxDatasets
	}
	return &Service{
		datasets:   datasets,
		search:     search,
		selector:   sel,
		executor:   exec,
		classifier: classifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// Ask runs question → discovery → selection → drafting → execution → classification.
func (s *Service) Ask(ctx context.Context, req Request) (Answer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Answer{}, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}

	ids := req.DatasetIDs
	if len(ids) == 0 {
		found, err := s.discover(ctx, question)
		if err != nil {
			return Answer{}, err
		}
		ids = found
	}

	candidates, err := s.candidates(ctx, ids)
	if err != nil {
		return Answer{}, err
	}

	picked, err := s.selector.Select(ctx, question, candidates)
	if err != nil {
		return Answer{}, fmt.Errorf("select datasets: %w", err)
	}
	chosen := pick(candidates, picked)

	ans := Answer{Question: question}
	targets := make([]query.Target, 0, len(chosen))
	names := make([]string, 0, len(chosen))
	for _, c := range chosen {
		draft, err := s.selector.DraftQuery(ctx, question, c)
		if err != nil {
			return Answer{}, fmt.Errorf("draft query: %w", err)
		}
		ans.Datasets = append(ans.Datasets, DatasetRef{ID: c.Dataset.ID, LogicalName: c.Dataset.LogicalName})
		ans.Queries = append(ans.Queries, PlannedQuery{DatasetID: c.Dataset.ID, Draft: draft})
		targets = append(targets, query.Target{Dataset: c.Dataset, Query: draft.Query})
		names = append(names, c.Dataset.LogicalName)
	}
	ans.Source = "Data source: " + strings.Join(names, ", ")

	set, failures, err := s.executor.ExecuteMany(ctx, targets)
	if err != nil {
		return Answer{}, err
	}
	ans.Result = set
	ans.Failures = failures

	decision, err := s.classifier.Classify(ctx, question, set)
	if err != nil {
		return Answer{}, fmt.Errorf("classify result: %w", err)
	}
	ans.Visualization = decision

	logpkg.FromContext(ctx, s.logger).Info("Question answered",
		zap.Int("datasets", len(chosen)),
		zap.Int("rows", len(set.Rows)),
		zap.String("mode", string(decision.Mode)),
		zap.String("mode_source", string(decision.Source)),
	)
	return ans, nil
}

// discover runs a cold column search and keeps the datasets of the best
// hits in rank order.
func (s *Service) discover(ctx context.Context, question string) ([]uuid.UUID, error) {
	hits, err := s.search.Search(ctx, question, s.cfg.SearchTopK, nil)
	if err != nil {
		return nil, fmt.Errorf("search columns: %w", err)
	}
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, h := range hits {
		if seen[h.DatasetID] {
			continue
		}
		seen[h.DatasetID] = true
		ids = append(ids, h.DatasetID)
		if len(ids) == s.cfg.MaxDatasets {
			break
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no indexed dataset matches the question: %w", domain.ErrNotFound)
	}
	return ids, nil
}

// candidates loads the queryable datasets among ids with their columns.
func (s *Service) candidates(ctx context.Context, ids []uuid.UUID) ([]selector.Candidate, error) {
	datasets, err := s.datasets.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load datasets: %w", err)
	}
	if len(datasets) == 0 {
		return nil, fmt.Errorf("datasets: %w", domain.ErrNotFound)
	}

	out := make([]selector.Candidate, 0, len(datasets))
	for i := range datasets {
		d := datasets[i]
		if !d.Ready() {
			s.logger.Info("Skipping dataset that is not queryable",
				zap.String("dataset_id", d.ID.String()),
				zap.String("parse_state", string(d.Parse.State)),
			)
			continue
		}
		cols, err := s.datasets.Columns(ctx, d.ID)
		if err != nil {
			return nil, fmt.Errorf("load columns of %s: %w", d.ID, err)
		}
		out = append(out, selector.Candidate{Dataset: d, Columns: cols})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: none of the datasets is ready for queries (parse must be %s)",
			domain.ErrStagePrecondition, domds.StateCompleted)
	}
	return out, nil
}

func pick(candidates []selector.Candidate, ids []uuid.UUID) []selector.Candidate {
	byID := make(map[uuid.UUID]selector.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.Dataset.ID] = c
	}
	out := make([]selector.Candidate, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		out = append(out, candidates[0])
	}
	return out
}
