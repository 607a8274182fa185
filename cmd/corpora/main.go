// Command corpora indexes documents from configured sources and serves
// hybrid search over them via CLI, MCP and JSON-RPC.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/custodia-labs/corpora/internal/adapters/driven/convert"
	"github.com/custodia-labs/corpora/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/corpora/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/corpora/internal/adapters/driven/qdrant"
	"github.com/custodia-labs/corpora/internal/adapters/driven/rerank"
	"github.com/custodia-labs/corpora/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/corpora/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/corpora/internal/adapters/driving/cli"
	"github.com/custodia-labs/corpora/internal/chunking"
	"github.com/custodia-labs/corpora/internal/config"
	"github.com/custodia-labs/corpora/internal/connectors/localfile"
	"github.com/custodia-labs/corpora/internal/core/ports/driven"
	"github.com/custodia-labs/corpora/internal/core/services"
	"github.com/custodia-labs/corpora/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := earlyConfigFlag()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	svcs, cleanup, err := wire(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	cli.SetVersion(version)
	cli.SetServices(*svcs)
	return cli.Execute()
}

// earlyConfigFlag extracts --config before cobra parses the command line, so
// wiring can read the right file.
func earlyConfigFlag() string {
	flags := pflag.NewFlagSet("early", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.Usage = func() {}
	configPath := flags.String("config", "", "")
	_ = flags.Parse(os.Args[1:])
	return *configPath
}

// wire builds the adapter and service graph from configuration.
func wire(cfg *config.Config) (*cli.Services, func(), error) {
	ctx := context.Background()

	states, err := sqlite.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening state store: %w", err)
	}

	vectors, err := buildVectorStore(ctx, cfg)
	if err != nil {
		states.Close()
		return nil, nil, fmt.Errorf("connecting to vector store: %w", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		states.Close()
		vectors.Close()
		return nil, nil, err
	}

	chunker, err := chunking.New(chunking.Config{
		ChunkSize:    cfg.Chunking.ChunkSize,
		ChunkOverlap: cfg.Chunking.ChunkOverlap,
	})
	if err != nil {
		states.Close()
		vectors.Close()
		return nil, nil, err
	}

	var reranker *services.Reranker
	if cfg.Rerank.Enabled {
		encoder := rerank.NewCrossEncoder(rerank.Config{
			BaseURL: cfg.Rerank.BaseURL,
			Model:   cfg.Rerank.Model,
		})
		reranker = services.NewReranker(encoder)
	}

	retriever := services.NewHybridRetriever(vectors, embedder, reranker, services.RetrieverConfig{
		VectorWeight:   cfg.Search.VectorWeight,
		KeywordWeight:  cfg.Search.KeywordWeight,
		ScoreThreshold: cfg.Search.ScoreThreshold,
	})

	tracker := services.NewBatchTracker(0, 0, 0)
	detector := services.NewChangeDetector(states)
	orchestrator := services.NewIngestOrchestrator(
		tracker, detector, chunker, embedder, vectors, states)

	connectors, err := buildConnectors(cfg)
	if err != nil {
		states.Close()
		vectors.Close()
		tracker.Stop()
		return nil, nil, err
	}

	cleanup := func() {
		tracker.Stop()
		if reranker != nil {
			if err := reranker.Close(); err != nil {
				logger.Warn("Closing reranker: %v", err)
			}
		}
		for _, c := range connectors {
			if err := c.Close(); err != nil {
				logger.Warn("Closing connector %s: %v", c.Source(), err)
			}
		}
		if err := vectors.Close(); err != nil {
			logger.Warn("Closing vector store: %v", err)
		}
		if err := states.Close(); err != nil {
			logger.Warn("Closing state store: %v", err)
		}
	}

	return &cli.Services{
		Search:     retriever,
		Ingest:     orchestrator,
		Connectors: connectors,
	}, cleanup, nil
}

func buildVectorStore(ctx context.Context, cfg *config.Config) (driven.VectorStore, error) {
	if cfg.Storage.VectorStore == "memory" {
		return memory.NewVectorStore(), nil
	}
	return qdrant.NewStore(ctx, qdrant.Config{
		URL:            cfg.Qdrant.URL,
		APIKey:         cfg.Qdrant.APIKey,
		CollectionName: cfg.Qdrant.Collection,
		VectorSize:     cfg.Qdrant.VectorSize,
	})
}

func buildEmbedder(cfg *config.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:    cfg.Embedding.APIKey,
			BaseURL:   cfg.Embedding.BaseURL,
			Model:     cfg.Embedding.Model,
			RateLimit: cfg.Embedding.RateLimit,
		})
	default:
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Qdrant.VectorSize,
			RateLimit:  cfg.Embedding.RateLimit,
		}), nil
	}
}

func buildConnectors(cfg *config.Config) ([]driven.Connector, error) {
	converter := convert.NewHTMLConverter()

	var connectors []driven.Connector
	for _, src := range cfg.Sources {
		switch src.Type {
		case "localfile":
			c, err := localfile.New(src.Path, converter)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", src.Path, err)
			}
			connectors = append(connectors, c)
		default:
			return nil, fmt.Errorf("unknown source type %q", src.Type)
		}
	}
	return connectors, nil
}
