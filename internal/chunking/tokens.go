package chunking

import (
	"strings"
	"unicode/utf8"
)

// TokenCounter measures chunk size in tokens.
type TokenCounter interface {
	// Count returns the token count for the text.
	Count(text string) int
}

// WordCounter approximates tokens as whitespace-delimited words. This tracks
// real tokenizer counts closely enough for budget enforcement on prose.
type WordCounter struct{}

// Count returns the number of whitespace-delimited fields.
func (WordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

// RuneCounter counts characters. It is the fallback when no tokenizer-like
// measure is wanted and budgets are expressed in characters.
type RuneCounter struct{}

// Count returns the number of runes in the text.
func (RuneCounter) Count(text string) int {
	return utf8.RuneCountInString(text)
}
