// Package rpc provides a JSON-RPC 2.0 server adapter exposing search over
// HTTP for programmatic clients.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/corpora/internal/core/domain"
	"github.com/custodia-labs/corpora/internal/core/ports/driving"
	"github.com/custodia-labs/corpora/internal/logger"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// request is a JSON-RPC 2.0 request envelope.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

// response is a JSON-RPC 2.0 response envelope.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// rpcError is a JSON-RPC 2.0 error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// searchParams is the parameter object for the search method.
type searchParams struct {
	Query       string   `json:"query"`
	SourceTypes []string `json:"source_types,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	Offset      int      `json:"offset,omitempty"`
	Rerank      bool     `json:"rerank,omitempty"`
}

// searchResult is one entry of the search method result.
type searchResult struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Content  string         `json:"content,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Server serves search over JSON-RPC 2.0.
type Server struct {
	search driving.SearchService
}

// NewServer creates a JSON-RPC server backed by the search service.
func NewServer(search driving.SearchService) (*Server, error) {
	if search == nil {
		return nil, fmt.Errorf("%w: search service is required", domain.ErrInvalidInput)
	}
	return &Server{search: search}, nil
}

// Handler returns the HTTP handler serving the RPC endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", s.handleRPC)
	return mux
}

// Run starts the HTTP server on addr. It blocks until the context is
// cancelled or an error occurs.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	logger.Info("JSON-RPC server listening on %s", addr)
	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nil, codeParseError, "parse error")
		return
	}

	if req.JSONRPC != "2.0" || req.Method == "" {
		writeError(w, req.ID, codeInvalidRequest, "invalid request")
		return
	}

	if req.Method != "search" {
		writeError(w, req.ID, codeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
		return
	}

	s.handleSearch(w, r, req)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, req request) {
	var params searchParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			writeError(w, req.ID, codeInvalidParams, "invalid params")
			return
		}
	}
	if params.Query == "" {
		writeError(w, req.ID, codeInvalidParams, "query is required")
		return
	}
	if params.Limit <= 0 {
		params.Limit = 10
	}

	opts := domain.SearchOptions{
		Limit:  params.Limit,
		Offset: params.Offset,
		Rerank: params.Rerank,
	}
	for _, st := range params.SourceTypes {
		opts.SourceTypes = append(opts.SourceTypes, domain.SourceType(st))
	}

	results, err := s.search.Search(r.Context(), params.Query, opts)
	if err != nil {
		logger.Warn("RPC search failed: %v", err)
		writeError(w, req.ID, codeInternalError, err.Error())
		return
	}

	out := make([]searchResult, len(results))
	for i := range results {
		out[i] = searchResult{
			ID:       results[i].ID,
			Score:    results[i].Score,
			Content:  results[i].Content,
			Metadata: results[i].Metadata,
		}
	}

	writeResult(w, req.ID, map[string]any{
		"results": out,
		"count":   len(out),
	})
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result any) {
	writeResponse(w, response{JSONRPC: "2.0", Result: result, ID: id})
}

func writeError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	writeResponse(w, response{
		JSONRPC: "2.0",
		Error:   &rpcError{Code: code, Message: message},
		ID:      id,
	})
}

func writeResponse(w http.ResponseWriter, resp response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Warn("Writing RPC response: %v", err)
	}
}
