// Package rerank provides a cross-encoder adapter backed by an HTTP
// inference server exposing a rerank endpoint (TEI-compatible).
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/custodia-labs/corpora/internal/core/ports/driven"
)

// Ensure CrossEncoder implements the interface.
var _ driven.CrossEncoder = (*CrossEncoder)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8080"
	DefaultModel   = "cross-encoder/ms-marco-MiniLM-L-6-v2"
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the HTTP cross-encoder.
type Config struct {
	// BaseURL is the inference server base URL (default: http://localhost:8080).
	BaseURL string

	// Model names the cross-encoder model served.
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// CrossEncoder scores (query, text) pairs against a remote model server.
type CrossEncoder struct {
	client  *http.Client
	baseURL string
	model   string
}

// rerankRequest is the server request format.
type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

// rerankResult is one scored entry; the server returns them ranked, so the
// index maps each score back to its input text.
type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// NewCrossEncoder creates an HTTP cross-encoder client.
func NewCrossEncoder(cfg Config) *CrossEncoder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &CrossEncoder{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Load verifies the inference server is up and serving. The model itself is
// loaded server-side; a failing health check here surfaces as a disabled
// reranker rather than per-query errors.
func (e *CrossEncoder) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("rerank server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rerank server health returned status %d", resp.StatusCode)
	}
	return nil
}

// Score returns one relevance score per text, in input order.
func (e *CrossEncoder) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	jsonBody, err := json.Marshal(rerankRequest{Query: query, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		e.baseURL+"/rerank",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("rerank error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("rerank error (status %d): %s", resp.StatusCode, string(body))
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(results) != len(texts) {
		return nil, fmt.Errorf("rerank returned %d scores for %d texts", len(results), len(texts))
	}

	// Restore input order; the server ranks by score.
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	scores := make([]float64, len(texts))
	for i, r := range results {
		if r.Index < 0 || r.Index >= len(texts) || r.Index != i {
			return nil, fmt.Errorf("rerank returned invalid index %d", r.Index)
		}
		scores[i] = r.Score
	}
	return scores, nil
}

// Close releases resources.
func (e *CrossEncoder) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
