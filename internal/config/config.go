// Package config loads and validates the Corpora TOML configuration.
// Configuration lives in ~/.corpora/config.toml by default; missing files
// yield a config with defaults so the tool works out of the box.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultEmbeddingProvider = "ollama"
	DefaultVectorStore       = "qdrant"
	DefaultCollection        = "corpora"
	DefaultVectorSize        = 768
	DefaultChunkSize         = 1000
	DefaultChunkOverlap      = 200
)

// Config is the full application configuration.
type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Qdrant    QdrantConfig    `toml:"qdrant"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Search    SearchConfig    `toml:"search"`
	Rerank    RerankConfig    `toml:"rerank"`
	Sources   []SourceConfig  `toml:"sources"`
}

// StorageConfig configures local state storage.
type StorageConfig struct {
	// DataDir holds the state database. Defaults to ~/.corpora/data.
	DataDir string `toml:"data_dir"`

	// VectorStore selects the vector store backend, "qdrant" or "memory".
	// The memory backend keeps the index in-process and loses it on exit;
	// it exists for trying the tool without a running Qdrant.
	VectorStore string `toml:"vector_store"`
}

// QdrantConfig configures the vector store connection.
type QdrantConfig struct {
	URL        string `toml:"url"`
	APIKey     string `toml:"api_key"`
	Collection string `toml:"collection"`
	VectorSize int    `toml:"vector_size"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "ollama" or "openai".
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
	// RateLimit is requests per second; 0 uses the provider default.
	RateLimit int `toml:"rate_limit"`
}

// ChunkingConfig configures document chunking.
type ChunkingConfig struct {
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`
}

// SearchConfig configures hybrid retrieval.
type SearchConfig struct {
	VectorWeight   float64 `toml:"vector_weight"`
	KeywordWeight  float64 `toml:"keyword_weight"`
	ScoreThreshold float64 `toml:"score_threshold"`
}

// RerankConfig configures the cross-encoder reranker.
type RerankConfig struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// SourceConfig declares one ingestion source.
type SourceConfig struct {
	// Type is the source type, e.g. "localfile".
	Type string `toml:"type"`
	// Path is the source location; for localfile, a directory.
	Path string `toml:"path"`
}

// DefaultPath returns the default config file path.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".corpora", "config.toml"), nil
}

// Load reads the configuration from path. If path is empty the default
// location is used; a missing file yields defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in zero-valued fields.
func (c *Config) applyDefaults() {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = DefaultEmbeddingProvider
	}
	if c.Storage.VectorStore == "" {
		c.Storage.VectorStore = DefaultVectorStore
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = DefaultCollection
	}
	if c.Qdrant.VectorSize == 0 {
		c.Qdrant.VectorSize = DefaultVectorSize
	}
	if c.Chunking.ChunkSize == 0 {
		c.Chunking.ChunkSize = DefaultChunkSize
	}
	if c.Chunking.ChunkOverlap == 0 {
		c.Chunking.ChunkOverlap = DefaultChunkOverlap
	}
}

// Validate fails fast on configuration the services would reject later.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("config: unknown embedding provider %q", c.Embedding.Provider)
	}

	if c.Embedding.Provider == "openai" && c.Embedding.APIKey == "" {
		return fmt.Errorf("config: embedding.api_key is required for openai")
	}

	switch c.Storage.VectorStore {
	case "qdrant", "memory":
	default:
		return fmt.Errorf("config: unknown vector store %q", c.Storage.VectorStore)
	}

	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("config: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}

	if c.Search.VectorWeight < 0 || c.Search.KeywordWeight < 0 {
		return fmt.Errorf("config: search weights must not be negative")
	}

	for i, src := range c.Sources {
		if src.Type == "" {
			return fmt.Errorf("config: sources[%d] is missing a type", i)
		}
		if src.Path == "" {
			return fmt.Errorf("config: sources[%d] is missing a path", i)
		}
	}

	return nil
}
