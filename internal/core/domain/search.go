package domain

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the maximum number of results.
	Limit int

	// Offset is the number of results to skip.
	Offset int

	// SourceTypes filters to specific source types.
	SourceTypes []SourceType

	// ProjectID scopes the search to a project. An explicit project_id field
	// query in the query string takes precedence over this value.
	ProjectID string

	// Rerank enables cross-encoder reranking of the fused result list.
	Rerank bool
}

// SearchResult represents a single search hit with its score breakdown.
type SearchResult struct {
	// ID is the matched chunk's point ID.
	ID string

	// Score is the fused relevance score, normalised to [0,1].
	Score float64

	// VectorScore is the normalised dense similarity contribution.
	VectorScore float64

	// KeywordScore is the normalised sparse match contribution.
	KeywordScore float64

	// Content is the chunk text.
	Content string

	// Metadata is the stored payload for the chunk.
	Metadata map[string]any

	// CrossEncoderScore is set when reranking scored this result.
	CrossEncoderScore *float64

	// CrossEncoderRank is the 1-based rank after reranking, 0 if not reranked.
	CrossEncoderRank int
}

// FieldQuery is a structured field:value predicate extracted from a query
// string.
type FieldQuery struct {
	Field string
	Value string
}

// ParsedQuery is the result of extracting field queries from a raw query
// string. Text holds the remaining free-text portion.
type ParsedQuery struct {
	Fields []FieldQuery
	Text   string
}

// FilterOnly reports whether retrieval should run as a direct
// metadata-filtered fetch instead of similarity search. This is the case when
// the query contains only recognised field tokens and no free text, or when
// the sole field query is a document_id lookup.
func (p ParsedQuery) FilterOnly() bool {
	if len(p.Fields) == 0 {
		return false
	}
	if p.Text == "" {
		return true
	}
	return len(p.Fields) == 1 && p.Fields[0].Field == "document_id"
}

// Field returns the first value for the named field query, if present.
func (p ParsedQuery) Field(name string) (string, bool) {
	for _, f := range p.Fields {
		if f.Field == name {
			return f.Value, true
		}
	}
	return "", false
}

// Condition is a single payload predicate for store filtering.
// Match may be a string, an int64 (coerced numeric values) or a []string
// (match-any).
type Condition struct {
	Key   string
	Match any
}

// Filter is a conjunction of payload conditions understood by vector stores.
type Filter struct {
	Must []Condition
}

// Empty reports whether the filter has no conditions.
func (f *Filter) Empty() bool {
	return f == nil || len(f.Must) == 0
}
