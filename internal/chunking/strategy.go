package chunking

// Chunking method names recorded in chunk metadata so callers can distinguish
// structural from degraded chunking.
const (
	MethodMarkdown       = "markdown"
	MethodJSON           = "json"
	MethodText           = "text"
	MethodFallbackText   = "fallback_text"
	MethodFallbackSimple = "fallback_simple"
)

// Section is one structural unit produced by a strategy, before it becomes a
// chunk document.
type Section struct {
	// Content is the chunk text, including any reconstructed ancestor
	// context.
	Content string

	// Title is the section title ("Introduction" for headerless markdown,
	// the element path for JSON, empty for plain text).
	Title string

	// Level is the header depth for markdown, nesting depth for JSON.
	Level int

	// Hierarchy is the ancestor path (parent titles, outermost first).
	Hierarchy []string

	// Method records how this section was produced.
	Method string

	// IsSectionStart marks sections that begin at a structural boundary.
	IsSectionStart bool
}

// Strategy splits document content into ordered sections respecting a
// structural grammar and the configured token budget.
type Strategy interface {
	// Name identifies the strategy for chunk metadata.
	Name() string

	// Split returns the ordered sections for the content. Strategies degrade
	// internally on malformed input rather than returning parse errors.
	Split(content string) ([]Section, error)
}
