package tablens

import (
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	username string
	password string

	metadataPath string
	blobPath     string

	embedder  Embedder
	completer Completer

	collectionBase  string
	hnswM           int
	hnswEFConstruct int
	rowCap          int
	maxUploadBytes  int64

	logger     *slog.Logger
	zapLogger  *zap.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		metadataPath: filepath.Join("data", "tablens.db"),
		blobPath:     filepath.Join("data", "blobs.bolt"),
	}
}

// WithRedis configures the Redis instance that holds the vector index.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedisACL configures Redis with an ACL user.
func WithRedisACL(addr, username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.username = username
		c.password = password
	})
}

// WithDataDir places the metadata and blob files under dir.
func WithDataDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.metadataPath = filepath.Join(dir, "tablens.db")
		c.blobPath = filepath.Join(dir, "blobs.bolt")
	})
}

// WithMetadataPath sets the SQLite metadata file.
func WithMetadataPath(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.metadataPath = path
	})
}

// WithBlobPath sets the bbolt file holding raw uploads and columnar files.
func WithBlobPath(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.blobPath = path
	})
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithCompleter sets the chat-completion provider.
func WithCompleter(cm Completer) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = cm
	})
}

// WithCollectionBase sets the prefix of the per-dimension collections.
// Default: "columns".
func WithCollectionBase(base string) Option {
	return optionFunc(func(c *clientConfig) {
		c.collectionBase = base
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithRowCap sets the LIMIT appended to queries that have none.
// Default: 1000.
func WithRowCap(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.rowCap = n
	})
}

// WithMaxUploadBytes bounds the size of an uploaded file. Default: 100 MB.
func WithMaxUploadBytes(n int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxUploadBytes = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithZapLogger routes the pipeline's internal logs (parse fallbacks,
// skipped columns, stage failures) to l. Default: discarded.
func WithZapLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.zapLogger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
