package chunking

import (
	"regexp"
	"strings"
)

var headerRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

// MarkdownStrategy splits markdown on headers. Each section carries a printed
// reconstruction of its open ancestor headers, so a subsection chunk always
// includes its parent titles. Chunk count and boundary placement are
// deterministic for identical input.
type MarkdownStrategy struct {
	cfg  Config
	text *TextStrategy
}

// NewMarkdownStrategy creates a markdown strategy with the given config.
func NewMarkdownStrategy(cfg Config) *MarkdownStrategy {
	return &MarkdownStrategy{cfg: cfg, text: NewTextStrategy(cfg)}
}

// Name returns the strategy name.
func (s *MarkdownStrategy) Name() string {
	return "markdown"
}

// openHeader is an entry on the ancestor header stack.
type openHeader struct {
	level int
	text  string
}

// Split scans lines for headers. A header of level L pops all open headers
// with level >= L, then pushes itself. Body lines accumulate until the next
// header of any level. A document without headers becomes a single section
// titled "Introduction".
func (s *MarkdownStrategy) Split(content string) ([]Section, error) {
	var (
		sections []Section
		stack    []openHeader
		body     []string
		started  bool
	)

	flush := func() {
		if !started {
			// Preamble before the first header, or a headerless document.
			text := strings.TrimSpace(strings.Join(body, "\n"))
			body = nil
			if text == "" {
				return
			}
			sections = append(sections, Section{
				Content:        text,
				Title:          "Introduction",
				Level:          0,
				Method:         MethodMarkdown,
				IsSectionStart: true,
			})
			return
		}

		var b strings.Builder
		for _, h := range stack {
			b.WriteString(strings.Repeat("#", h.level))
			b.WriteString(" ")
			b.WriteString(h.text)
			b.WriteString("\n")
		}
		b.WriteString(strings.TrimSpace(strings.Join(body, "\n")))
		body = nil

		top := stack[len(stack)-1]
		hierarchy := make([]string, 0, len(stack)-1)
		for _, h := range stack[:len(stack)-1] {
			hierarchy = append(hierarchy, h.text)
		}

		sections = append(sections, Section{
			Content:        strings.TrimRight(b.String(), "\n"),
			Title:          top.text,
			Level:          top.level,
			Hierarchy:      hierarchy,
			Method:         MethodMarkdown,
			IsSectionStart: true,
		})
	}

	for _, line := range strings.Split(content, "\n") {
		m := headerRe.FindStringSubmatch(line)
		if m == nil {
			body = append(body, line)
			continue
		}

		flush()
		level := len(m[1])
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, openHeader{level: level, text: strings.TrimSpace(m[2])})
		started = true
	}
	flush()

	return s.enforceBudget(sections), nil
}

// enforceBudget delegates oversized sections to the text splitter, keeping
// the section's title, level and hierarchy on every resulting piece.
func (s *MarkdownStrategy) enforceBudget(sections []Section) []Section {
	out := make([]Section, 0, len(sections))
	for _, sec := range sections {
		if s.cfg.Counter.Count(sec.Content) <= s.cfg.ChunkSize {
			out = append(out, sec)
			continue
		}
		for i, part := range s.text.splitBudget(sec.Content) {
			piece := sec
			piece.Content = part
			piece.IsSectionStart = i == 0
			out = append(out, piece)
		}
	}
	return out
}
