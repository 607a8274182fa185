// Package chunking splits documents into ordered, token-budgeted chunks.
//
// Three strategies are provided: markdown (header-aware, preserves ancestor
// context), json (structure-aware with budgeted subtree emission) and text
// (paragraph/sentence/word degradation). The Chunker selects a strategy from
// the document's content type, resolved once at construction time.
package chunking
