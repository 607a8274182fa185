package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/corpora/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query       string   `json:"query" jsonschema:"the search query; supports field:value filters like source_type:confluence"`
	SourceTypes []string `json:"source_types,omitempty" jsonschema:"restrict results to these source types"`
	Limit       int      `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Rerank      bool     `json:"rerank,omitempty" jsonschema:"apply cross-encoder reranking to the results"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id,omitempty"`
	Title      string  `json:"title,omitempty"`
	URL        string  `json:"url,omitempty"`
	SourceType string  `json:"source_type,omitempty"`
	Score      float64 `json:"score"`
	Content    string  `json:"content,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search across all indexed documents",
	}, s.handleSearch)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	opts := domain.SearchOptions{
		Limit:  limit,
		Rerank: input.Rerank,
	}
	for _, st := range input.SourceTypes {
		opts.SourceTypes = append(opts.SourceTypes, domain.SourceType(st))
	}

	results, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}

	for i := range results {
		output.Results[i] = SearchResultOutput{
			ID:         results[i].ID,
			DocumentID: payloadString(results[i].Metadata, "document_id"),
			Title:      payloadString(results[i].Metadata, "title"),
			URL:        payloadString(results[i].Metadata, "url"),
			SourceType: payloadString(results[i].Metadata, "source_type"),
			Score:      results[i].Score,
			Content:    results[i].Content,
		}
	}

	return nil, output, nil
}

// payloadString reads a string value from a chunk payload.
func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	s, _ := payload[key].(string)
	return s
}
