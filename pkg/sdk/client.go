package tablens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/blob"
	"github.com/kailas-cloud/tablens/internal/columnar"
	"github.com/kailas-cloud/tablens/internal/db"
	dbRedis "github.com/kailas-cloud/tablens/internal/db/redis"
	"github.com/kailas-cloud/tablens/internal/domain"
	"github.com/kailas-cloud/tablens/internal/domain/column"
	domds "github.com/kailas-cloud/tablens/internal/domain/dataset"
	dompoint "github.com/kailas-cloud/tablens/internal/domain/point"
	"github.com/kailas-cloud/tablens/internal/parser"
	"github.com/kailas-cloud/tablens/internal/queryengine"
	collectionrepo "github.com/kailas-cloud/tablens/internal/repository/collection"
	datasetrepo "github.com/kailas-cloud/tablens/internal/repository/dataset"
	"github.com/kailas-cloud/tablens/internal/repository/lock"
	pointrepo "github.com/kailas-cloud/tablens/internal/repository/point"
	"github.com/kailas-cloud/tablens/internal/retry"
	askuc "github.com/kailas-cloud/tablens/internal/usecase/ask"
	healthuc "github.com/kailas-cloud/tablens/internal/usecase/health"
	"github.com/kailas-cloud/tablens/internal/usecase/ingest"
	queryuc "github.com/kailas-cloud/tablens/internal/usecase/query"
	"github.com/kailas-cloud/tablens/internal/usecase/selector"
	"github.com/kailas-cloud/tablens/internal/usecase/vectorindex"
	"github.com/kailas-cloud/tablens/internal/usecase/visualize"
	"github.com/kailas-cloud/tablens/internal/version"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, replaced in tests.
type datasetUseCase interface {
	Upload(ctx context.Context, in ingest.Upload) (domds.Dataset, error)
	Get(ctx context.Context, id uuid.UUID) (domds.Dataset, error)
	List(ctx context.Context) ([]domds.Dataset, error)
	Columns(ctx context.Context, id uuid.UUID) ([]column.Column, error)
	Retry(ctx context.Context, id uuid.UUID, stage domds.Stage) (domds.Dataset, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type searchUseCase interface {
	Search(ctx context.Context, query string, topK int, datasetID *uuid.UUID) ([]dompoint.Ranked, error)
}

type askUseCase interface {
	Ask(ctx context.Context, req askuc.Request) (askuc.Answer, error)
}

// Client is the tablens SDK entry point.
type Client struct {
	datasetSvc datasetUseCase
	searchSvc  searchUseCase
	askSvc     askUseCase
	healthSvc  healthUseCase
	obs        *observer

	runner   *ingest.Runner
	stopRuns context.CancelFunc
	closers  []func() error
}

// New creates a Client, connects to Redis and opens the local stores.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("tablens: redis address required (use WithRedis)")
	}
	if cfg.embedder == nil {
		return nil, errors.New("tablens: embedder required (use WithEmbedder)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("tablens: create redis store: %w", err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("tablens: database not ready: %w", err)
	}

	datasets, err := datasetrepo.Open(ctx, cfg.metadataPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("tablens: open metadata: %w", err)
	}
	blobs, err := blob.Open(cfg.blobPath)
	if err != nil {
		_ = datasets.Close()
		store.Close()
		return nil, fmt.Errorf("tablens: open blobs: %w", err)
	}

	c, err := wireClient(store, datasets, blobs, cfg, obs)
	if err != nil {
		_ = blobs.Close()
		_ = datasets.Close()
		store.Close()
		return nil, err
	}
	return c, nil
}

func wireClient(
	store db.Store, datasets *datasetrepo.Repo, blobs *blob.Store, cfg *clientConfig, obs *observer,
) (*Client, error) {
	logger := cfg.zapLogger
	if logger == nil {
		logger = zap.NewNop()
	}

	var embedder domain.Embedder = &embedderAdapter{inner: cfg.embedder}
	var completer domain.Completer = noCompleter{}
	var vizCompleter domain.Completer
	if cfg.completer != nil {
		completer = cfg.completer
		vizCompleter = cfg.completer
	}

	collRepo := collectionrepo.New(store).WithHNSW(collectionrepo.HNSWConfig{
		M:           cfg.hnswM,
		EFConstruct: cfg.hnswEFConstruct,
	})
	index, err := vectorindex.New(embedder, collRepo, pointrepo.New(store), cfg.collectionBase, retry.Policy{}, logger)
	if err != nil {
		return nil, fmt.Errorf("tablens: %w", err)
	}

	runCtx, stopRuns := context.WithCancel(context.Background())
	runner := ingest.NewRunner(runCtx, logger)
	ingestSvc := ingest.New(datasets, blobs, parser.New(logger), index, lock.New(store, 0), runner,
		ingest.Limits{MaxBytes: cfg.maxUploadBytes}, logger)

	askSvc := askuc.New(
		datasets,
		index,
		selector.New(completer, logger),
		queryuc.New(blobs, queryengine.New(logger), columnar.Decode, cfg.rowCap, logger),
		visualize.New(vizCompleter, logger),
		askuc.Config{},
		logger,
	)

	healthSvc := healthuc.New(version.Version,
		healthuc.Component{Name: "database", Pinger: store, Critical: true},
		healthuc.Component{Name: "metadata", Pinger: datasets, Critical: true},
		healthuc.Component{Name: "blob", Pinger: blobs, Critical: true},
	)

	return &Client{
		datasetSvc: ingestSvc,
		searchSvc:  index,
		askSvc:     askSvc,
		healthSvc:  healthSvc,
		obs:        obs,
		runner:     runner,
		stopRuns:   stopRuns,
		closers: []func() error{
			blobs.Close,
			datasets.Close,
			func() error { store.Close(); return nil },
		},
	}, nil
}

// Close waits for background ingestion until ctx is done, then releases
// all resources. Stages cut short stay "running" and can be retried later.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	if c.runner != nil {
		if err := c.runner.Drain(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.stopRuns != nil {
		c.stopRuns()
	}
	for _, fn := range c.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Datasets returns the dataset service.
func (c *Client) Datasets() *DatasetService {
	return &DatasetService{svc: c.datasetSvc, obs: c.obs}
}

// SearchColumns returns the columns whose descriptions are most similar to
// query. An empty datasetID searches every dataset.
func (c *Client) SearchColumns(ctx context.Context, query string, topK int, datasetID string) (hits []ColumnHit, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search_columns", start, err) }()

	var scope *uuid.UUID
	if datasetID != "" {
		id, perr := parseID(datasetID)
		if perr != nil {
			return nil, perr
		}
		scope = &id
	}

	ranked, err := c.searchSvc.Search(ctx, query, topK, scope)
	if err != nil {
		return nil, fmt.Errorf("search columns: %w", err)
	}
	hits = make([]ColumnHit, len(ranked))
	for i := range ranked {
		hits[i] = hitFromDomain(&ranked[i])
	}
	return hits, nil
}

// Ask answers a question. Without datasetIDs the datasets are found by
// column search.
func (c *Client) Ask(ctx context.Context, question string, datasetIDs ...string) (ans Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ask", start, err) }()

	ids := make([]uuid.UUID, 0, len(datasetIDs))
	for _, s := range datasetIDs {
		id, perr := parseID(s)
		if perr != nil {
			return Answer{}, perr
		}
		ids = append(ids, id)
	}

	a, err := c.askSvc.Ask(ctx, askuc.Request{Question: question, DatasetIDs: ids})
	if err != nil {
		return Answer{}, fmt.Errorf("ask: %w", err)
	}
	return answerFromDomain(&a), nil
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: dataset id %q: %w", domain.ErrInvalidInput, s, err)
	}
	return id, nil
}
