package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultEmbeddingProvider, cfg.Embedding.Provider)
	assert.Equal(t, DefaultCollection, cfg.Qdrant.Collection)
	assert.Equal(t, DefaultVectorSize, cfg.Qdrant.VectorSize)
	assert.Equal(t, DefaultChunkSize, cfg.Chunking.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, cfg.Chunking.ChunkOverlap)
}

func TestLoad_ParsesSections(t *testing.T) {
	path := writeConfig(t, `
[qdrant]
url = "localhost:6334"
collection = "docs"
vector_size = 1536

[embedding]
provider = "openai"
model = "text-embedding-3-small"
api_key = "sk-test"

[search]
vector_weight = 0.7
keyword_weight = 0.3

[rerank]
enabled = true
base_url = "http://localhost:8080"

[[sources]]
type = "localfile"
path = "/srv/docs"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost:6334", cfg.Qdrant.URL)
	assert.Equal(t, "docs", cfg.Qdrant.Collection)
	assert.Equal(t, 1536, cfg.Qdrant.VectorSize)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 0.7, cfg.Search.VectorWeight)
	assert.True(t, cfg.Rerank.Enabled)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "localfile", cfg.Sources[0].Type)
	assert.Equal(t, "/srv/docs", cfg.Sources[0].Path)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeConfig(t, `not = [valid`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_UnknownProvider(t *testing.T) {
	path := writeConfig(t, `
[embedding]
provider = "acme"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown embedding provider")
}

func TestValidate_OpenAIRequiresKey(t *testing.T) {
	path := writeConfig(t, `
[embedding]
provider = "openai"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestValidate_UnknownVectorStore(t *testing.T) {
	path := writeConfig(t, `
[storage]
vector_store = "pinecone"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown vector store")
}

func TestLoad_MemoryVectorStore(t *testing.T) {
	path := writeConfig(t, `
[storage]
vector_store = "memory"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.VectorStore)
}

func TestValidate_OverlapSmallerThanSize(t *testing.T) {
	path := writeConfig(t, `
[chunking]
chunk_size = 100
chunk_overlap = 100
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_overlap")
}

func TestValidate_SourceNeedsTypeAndPath(t *testing.T) {
	path := writeConfig(t, `
[[sources]]
type = "localfile"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing a path")
}
