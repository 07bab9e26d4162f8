package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/blob"
	"github.com/kailas-cloud/tablens/internal/columnar"
	"github.com/kailas-cloud/tablens/internal/config"
	dbRedis "github.com/kailas-cloud/tablens/internal/db/redis"
	"github.com/kailas-cloud/tablens/internal/domain"
	logpkg "github.com/kailas-cloud/tablens/internal/logger"
	"github.com/kailas-cloud/tablens/internal/metrics"
	"github.com/kailas-cloud/tablens/internal/parser"
	"github.com/kailas-cloud/tablens/internal/queryengine"
	collectionrepo "github.com/kailas-cloud/tablens/internal/repository/collection"
	datasetrepo "github.com/kailas-cloud/tablens/internal/repository/dataset"
	"github.com/kailas-cloud/tablens/internal/repository/embcache"
	"github.com/kailas-cloud/tablens/internal/repository/lock"
	pointrepo "github.com/kailas-cloud/tablens/internal/repository/point"
	"github.com/kailas-cloud/tablens/internal/retry"
	chiTransport "github.com/kailas-cloud/tablens/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/tablens/internal/transport/openai"
	askuc "github.com/kailas-cloud/tablens/internal/usecase/ask"
	embeddinguc "github.com/kailas-cloud/tablens/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/tablens/internal/usecase/health"
	"github.com/kailas-cloud/tablens/internal/usecase/ingest"
	queryuc "github.com/kailas-cloud/tablens/internal/usecase/query"
	"github.com/kailas-cloud/tablens/internal/usecase/selector"
	"github.com/kailas-cloud/tablens/internal/usecase/vectorindex"
	"github.com/kailas-cloud/tablens/internal/usecase/visualize"
	"github.com/kailas-cloud/tablens/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting tablens API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("metadata_path", cfg.Metadata.Path),
		zap.String("blob_path", cfg.Blob.Path),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	datasets, err := datasetrepo.Open(ctx, cfg.Metadata.Path)
	if err != nil {
		logger.Fatal("Failed to open metadata store", zap.Error(err))
	}
	defer func() { _ = datasets.Close() }()

	blobs, err := blob.Open(cfg.Blob.Path)
	if err != nil {
		logger.Fatal("Failed to open blob store", zap.Error(err))
	}
	defer func() { _ = blobs.Close() }()

	// Register metrics explicitly (no init())
	metrics.Register()

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	embedder := buildEmbedder(base, cfg.Embedding, store, logger)
	completer := buildCompleter(cfg.Completion, logger)
	logger.Info("Model clients created",
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Bool("completion_enabled", completer != nil),
		zap.String("completion_model", cfg.Completion.Model),
	)

	retryPolicy := retry.Policy{
		MaxRetries: cfg.Embedding.MaxRetries,
		BaseDelay:  cfg.Embedding.RetryBase(),
	}
	collRepo := collectionrepo.New(store).WithHNSW(collectionrepo.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	index, err := vectorindex.New(embedder, collRepo, pointrepo.New(store),
		cfg.Index.CollectionBase, retryPolicy, logger)
	if err != nil {
		logger.Fatal("Failed to create vector index", zap.Error(err))
	}

	// Background ingestion lives as long as the server, not the request.
	runCtx, stopRuns := context.WithCancel(context.Background())
	defer stopRuns()
	runner := ingest.NewRunner(runCtx, logger)

	ingestSvc := ingest.New(
		datasets, blobs, parser.New(logger), index,
		lock.New(store, cfg.Ingest.LockTTL()), runner,
		ingest.Limits{MaxBytes: cfg.Ingest.MaxUploadBytes(), Extensions: cfg.Ingest.Extensions},
		logger,
	)

	// The selector always has a completer: a disabled model falls through
	// to single-candidate selection and rule-based drafts.
	var selCompleter domain.Completer = disabledCompleter
	var vizCompleter domain.Completer
	if completer != nil {
		selCompleter = completer
		vizCompleter = completer
	}
	askSvc := askuc.New(
		datasets,
		index,
		selector.New(selCompleter, logger),
		queryuc.New(blobs, queryengine.New(logger), columnar.Decode, cfg.Query.RowCap, logger),
		visualize.New(vizCompleter, logger),
		askuc.Config{SearchTopK: cfg.Query.SearchTopK, MaxDatasets: cfg.Query.MaxDatasets},
		logger,
	)

	healthSvc := healthuc.New(version.Version,
		healthuc.Component{Name: "database", Pinger: store, Critical: true},
		healthuc.Component{Name: "metadata", Pinger: datasets, Critical: true},
		healthuc.Component{Name: "blob", Pinger: blobs, Critical: true},
		healthuc.Component{Name: "embedding", Pinger: healthuc.PingerFunc(base.HealthCheck)},
	)

	server := chiTransport.NewServer(ingestSvc, index, askSvc, healthSvc, cfg.Ingest.MaxUploadBytes(), logger)
	handler := chiTransport.Router(server, logger, metrics.Middleware())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), time.Duration(cfg.Ingest.DrainSec)*time.Second)
	defer cancelDrain()
	if err := runner.Drain(drainCtx); err != nil {
		// Stages still running are left in "running"; the retry route recovers them.
		logger.Warn("Ingest tasks still running at shutdown", zap.Error(err))
		stopRuns()
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
// Retries wrap the chain inside the vector index.
func buildEmbedder(
	base domain.Embedder,
	cfg config.EmbeddingConfig,
	store *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, cfg.Model, cfg.CacheTTL(), metrics.EmbeddingCacheTotal, logger)
	}
	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger)
}

// buildCompleter returns nil when no completion model is configured.
func buildCompleter(cfg config.CompletionConfig, logger *zap.Logger) domain.Completer {
	if !cfg.Enabled() {
		return nil
	}
	base := openaiTransport.NewCompleter(&openaiTransport.Config{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		Provider: cfg.Provider,
		Logger:   logger,
	})
	return embeddinguc.NewInstrumentedCompleter(base, cfg.Provider, cfg.Model, logger)
}

var disabledCompleter = domain.CompleterFunc(func(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("completion model is not configured: %w", domain.ErrCompletionProviderError)
})
