package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the tablens configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Metadata   MetadataConfig   `yaml:"metadata"`
	Blob       BlobConfig       `yaml:"blob"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Completion CompletionConfig `yaml:"completion"`
	Index      IndexConfig      `yaml:"index"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Query      QueryConfig      `yaml:"query"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the Redis connection settings of the vector index.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// MetadataConfig locates the SQLite metadata database.
type MetadataConfig struct {
	Path string `yaml:"path"`
}

// BlobConfig locates the bbolt blob store.
type BlobConfig struct {
	Path string `yaml:"path"`
}

// ProviderConfig holds an OpenAI-compatible endpoint.
type ProviderConfig struct {
	Provider string `yaml:"provider"` // metrics label
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
}

// EmbeddingConfig holds embedding settings. Dimensions 0 keeps the model
// default; the index probes the live dimension either way.
type EmbeddingConfig struct {
	ProviderConfig `yaml:",inline"`

	Dimensions    int `yaml:"dimensions"`
	CacheTTLHours int `yaml:"cache_ttl_hours"` // 0 = no expiry
	MaxRetries    int `yaml:"max_retries"`
	RetryBaseMs   int `yaml:"retry_base_ms"`
}

// CompletionConfig holds chat-completion settings. An empty model disables
// model-backed selection, drafting and classification.
type CompletionConfig struct {
	ProviderConfig `yaml:",inline"`
}

// Enabled reports whether a completion model is configured.
func (c CompletionConfig) Enabled() bool { return c.Model != "" && c.BaseURL != "" }

// IndexConfig holds vector index settings.
type IndexConfig struct {
	CollectionBase  string `yaml:"collection_base"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// IngestConfig holds upload and pipeline settings.
type IngestConfig struct {
	MaxUploadMB    int      `yaml:"max_upload_mb"`
	Extensions     []string `yaml:"extensions"`
	LockTTLMinutes int      `yaml:"lock_ttl_minutes"`
	DrainSec       int      `yaml:"drain_timeout_sec"`
}

// QueryConfig holds question-answering settings.
type QueryConfig struct {
	RowCap      int `yaml:"row_cap"`
	SearchTopK  int `yaml:"search_top_k"`
	MaxDatasets int `yaml:"max_datasets"`
}

// Load reads configuration from a YAML file by environment name (local, test, prod).
// A .env file in the working directory is loaded first; existing variables win.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Metadata.Path == "" {
		c.Metadata.Path = "data/tablens.db"
	}
	if c.Blob.Path == "" {
		c.Blob.Path = "data/blobs.bolt"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.MaxRetries <= 0 {
		c.Embedding.MaxRetries = 3
	}
	if c.Embedding.RetryBaseMs <= 0 {
		c.Embedding.RetryBaseMs = 1000
	}
	if c.Completion.Provider == "" {
		c.Completion.Provider = c.Embedding.Provider
	}
	if c.Completion.APIKey == "" {
		c.Completion.APIKey = c.Embedding.APIKey
	}
	if c.Completion.BaseURL == "" {
		c.Completion.BaseURL = c.Embedding.BaseURL
	}
	if c.Index.CollectionBase == "" {
		c.Index.CollectionBase = "columns"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Ingest.MaxUploadMB <= 0 {
		c.Ingest.MaxUploadMB = 100
	}
	if c.Ingest.LockTTLMinutes <= 0 {
		c.Ingest.LockTTLMinutes = 30
	}
	if c.Ingest.DrainSec <= 0 {
		c.Ingest.DrainSec = 30
	}
	if c.Query.RowCap <= 0 {
		c.Query.RowCap = 1000
	}
	if c.Query.SearchTopK <= 0 {
		c.Query.SearchTopK = 10
	}
	if c.Query.MaxDatasets <= 0 {
		c.Query.MaxDatasets = 3
	}
}

var collectionBaseRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return errors.New("database.addrs is required")
	}
	if c.Embedding.BaseURL == "" || c.Embedding.Model == "" {
		return errors.New("embedding.base_url and embedding.model are required")
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}
	if !collectionBaseRe.MatchString(c.Index.CollectionBase) {
		return fmt.Errorf("index.collection_base must match %s, got %q", collectionBaseRe, c.Index.CollectionBase)
	}
	for _, ext := range c.Ingest.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("ingest.extensions entries must start with a dot, got %q", ext)
		}
	}
	return nil
}

// MaxUploadBytes is the upload limit in bytes.
func (c IngestConfig) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) << 20 }

// LockTTL is the per-dataset lease duration.
func (c IngestConfig) LockTTL() time.Duration { return time.Duration(c.LockTTLMinutes) * time.Minute }

// CacheTTL is the embedding cache expiry; 0 keeps entries forever.
func (c EmbeddingConfig) CacheTTL() time.Duration { return time.Duration(c.CacheTTLHours) * time.Hour }

// RetryBase is the first retry backoff.
func (c EmbeddingConfig) RetryBase() time.Duration { return time.Duration(c.RetryBaseMs) * time.Millisecond }

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
