// Package mcp provides an MCP (Model Context Protocol) server adapter for
// Corpora. It lets AI assistants search the indexed corpus over stdio or HTTP.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")
