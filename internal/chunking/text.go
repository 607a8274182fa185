package chunking

import (
	"regexp"
	"strings"
)

var paragraphRe = regexp.MustCompile(`\n\s*\n`)

// TextStrategy splits plain text on paragraph breaks, degrading to sentence
// and then word boundaries for oversized fragments. It is also the ultimate
// fallback for other strategies.
type TextStrategy struct {
	cfg Config
}

// NewTextStrategy creates a text strategy with the given config.
func NewTextStrategy(cfg Config) *TextStrategy {
	return &TextStrategy{cfg: cfg}
}

// Name returns the strategy name.
func (s *TextStrategy) Name() string {
	return "text"
}

// Split returns one section per budgeted text fragment. Empty and
// whitespace-only fragments are dropped; no tier produces an empty chunk.
func (s *TextStrategy) Split(content string) ([]Section, error) {
	parts := s.splitBudget(content)
	sections := make([]Section, 0, len(parts))
	for _, part := range parts {
		sections = append(sections, Section{
			Content: part,
			Method:  MethodText,
		})
	}
	return sections, nil
}

// splitBudget applies the three-tier degradation: paragraphs, then sentences,
// then words. A fragment is only split mid-word when a single word alone
// exceeds the budget.
func (s *TextStrategy) splitBudget(content string) []string {
	var out []string

	for _, para := range paragraphRe.Split(content, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if s.cfg.Counter.Count(para) <= s.cfg.ChunkSize {
			out = append(out, para)
			continue
		}
		out = append(out, s.splitSentences(para)...)
	}

	return out
}

// splitSentences packs sentences up to the budget, degrading oversized
// sentences to word packing.
func (s *TextStrategy) splitSentences(para string) []string {
	var out []string
	var current string

	flush := func() {
		if current != "" {
			out = append(out, current)
			current = ""
		}
	}

	for _, sentence := range sentences(para) {
		if s.cfg.Counter.Count(sentence) > s.cfg.ChunkSize {
			flush()
			out = append(out, s.splitWords(sentence)...)
			continue
		}

		candidate := sentence
		if current != "" {
			candidate = current + " " + sentence
		}
		if s.cfg.Counter.Count(candidate) <= s.cfg.ChunkSize {
			current = candidate
			continue
		}
		flush()
		current = sentence
	}
	flush()

	return out
}

// splitWords packs words up to the budget. A single word over budget is
// hard-split by runes.
func (s *TextStrategy) splitWords(sentence string) []string {
	var out []string
	var current string

	flush := func() {
		if current != "" {
			out = append(out, current)
			current = ""
		}
	}

	for _, word := range strings.Fields(sentence) {
		if s.cfg.Counter.Count(word) > s.cfg.ChunkSize {
			flush()
			out = append(out, runeWindows(word, s.cfg.ChunkSize, 0)...)
			continue
		}

		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if s.cfg.Counter.Count(candidate) <= s.cfg.ChunkSize {
			current = candidate
			continue
		}
		flush()
		current = word
	}
	flush()

	return out
}

// sentences splits text on common sentence terminators, keeping the
// terminator with its sentence.
func sentences(text string) []string {
	var out []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(current.String()); s != "" {
				out = append(out, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		out = append(out, s)
	}

	return out
}

// simpleSplit is the flat line/character splitter used when structural
// parsing is skipped entirely (oversized files). Lines are packed up to the
// budget; oversized lines become overlapping rune windows.
func simpleSplit(content string, cfg Config) []string {
	var out []string
	var current []string
	currentCount := 0

	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, "\n"))
			current = nil
			currentCount = 0
		}
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := cfg.Counter.Count(line)
		if n > cfg.ChunkSize {
			flush()
			out = append(out, runeWindows(line, cfg.ChunkSize, cfg.ChunkOverlap)...)
			continue
		}
		if currentCount+n > cfg.ChunkSize {
			flush()
		}
		current = append(current, line)
		currentCount += n
	}
	flush()

	return out
}

// runeWindows splits text into windows of at most size runes, stepping by
// size-overlap.
func runeWindows(text string, size, overlap int) []string {
	runes := []rune(text)
	step := size - overlap
	if step <= 0 {
		step = size
	}

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		if end == len(runes) {
			break
		}
	}

	return out
}
