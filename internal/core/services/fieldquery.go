package services

import (
	"strconv"
	"strings"

	"github.com/custodia-labs/corpora/internal/core/domain"
	"github.com/custodia-labs/corpora/internal/logger"
)

// recognisedFields are the field names the query parser extracts into
// structured predicates. Anything else stays in the free text verbatim, so an
// operator typo becomes a literal search term rather than an error. That is
// forgiving by design but easy to miss, so unrecognised field-shaped tokens
// are logged as warnings.
var recognisedFields = map[string]bool{
	"source_type":  true,
	"source":       true,
	"project_id":   true,
	"document_id":  true,
	"chunk_index":  true,
	"title":        true,
	"url":          true,
	"content_type": true,
}

// chunkMetadataFields are stored under the metadata payload sub-map and need
// dot-notation when building store filters.
var chunkMetadataFields = map[string]bool{
	"chunk_index": true,
	"project_id":  true,
}

// ParseFieldQueries extracts field:value tokens from a raw query string.
// Values containing spaces use double quotes (title:"API docs"). The
// remainder is returned as free text with original token order preserved.
func ParseFieldQueries(query string) domain.ParsedQuery {
	parsed := domain.ParsedQuery{}
	var textParts []string

	for _, token := range tokenize(query) {
		colon := strings.Index(token, ":")
		if colon <= 0 || colon == len(token)-1 {
			textParts = append(textParts, token)
			continue
		}

		field := token[:colon]
		value := unquote(token[colon+1:])

		if !recognisedFields[field] {
			if looksLikeField(field) {
				logger.Warn("Unrecognised field query %q treated as literal text", token)
			}
			textParts = append(textParts, token)
			continue
		}

		parsed.Fields = append(parsed.Fields, domain.FieldQuery{Field: field, Value: value})
	}

	parsed.Text = strings.Join(textParts, " ")
	return parsed
}

// tokenize splits on whitespace while keeping double-quoted spans attached to
// their token.
func tokenize(query string) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false

	for _, r := range query {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			current.WriteRune(r)
		case !inQuotes && (r == ' ' || r == '\t' || r == '\n'):
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}

func unquote(value string) string {
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		return value[1 : len(value)-1]
	}
	return value
}

// looksLikeField reports whether a token prefix is plausibly an intended
// field name rather than ordinary text containing a colon (URLs, times).
func looksLikeField(field string) bool {
	for _, r := range field {
		if r != '_' && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// BuildFilter converts parsed field queries and search options into a store
// filter. Numeric-looking values are coerced to integers; chunk-level fields
// use dot-notation under the metadata payload. An explicit project_id field
// query suppresses the option-supplied project scope.
func BuildFilter(parsed domain.ParsedQuery, opts domain.SearchOptions) *domain.Filter {
	filter := &domain.Filter{}

	explicitProject := false
	for _, fq := range parsed.Fields {
		if fq.Field == "project_id" {
			explicitProject = true
		}
		filter.Must = append(filter.Must, domain.Condition{
			Key:   filterKey(fq.Field),
			Match: coerceValue(fq.Value),
		})
	}

	if opts.ProjectID != "" && !explicitProject {
		filter.Must = append(filter.Must, domain.Condition{
			Key:   filterKey("project_id"),
			Match: opts.ProjectID,
		})
	}

	if len(opts.SourceTypes) > 0 {
		values := make([]string, len(opts.SourceTypes))
		for i, st := range opts.SourceTypes {
			values[i] = string(st)
		}
		filter.Must = append(filter.Must, domain.Condition{Key: "source_type", Match: values})
	}

	if filter.Empty() {
		return nil
	}
	return filter
}

func filterKey(field string) string {
	if chunkMetadataFields[field] {
		return "metadata." + field
	}
	return field
}

func coerceValue(value string) any {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	return value
}
