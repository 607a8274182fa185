package chunking

import (
	"encoding/json"
	"fmt"
	"sort"
)

// JSONStrategy splits JSON content along its object/array nesting. Subtrees
// that fit the token budget become single chunks; oversized subtrees recurse
// into their children. Large arrays are capped at MaxArrayItems per chunk.
//
// Parse failures degrade to the text splitter (chunking_method
// "fallback_text"); content above the large-file threshold skips parsing
// entirely and uses the flat splitter (chunking_method "fallback_simple").
type JSONStrategy struct {
	cfg  Config
	text *TextStrategy
}

// NewJSONStrategy creates a JSON strategy with the given config.
func NewJSONStrategy(cfg Config) *JSONStrategy {
	return &JSONStrategy{cfg: cfg, text: NewTextStrategy(cfg)}
}

// Name returns the strategy name.
func (s *JSONStrategy) Name() string {
	return "json"
}

// Split parses the content and walks the element tree. It never returns a
// parse error; malformed input is reported through the section Method.
func (s *JSONStrategy) Split(content string) ([]Section, error) {
	if len(content) > s.cfg.LargeFileBytes {
		parts := simpleSplit(content, s.cfg)
		sections := make([]Section, 0, len(parts))
		for _, part := range parts {
			sections = append(sections, Section{Content: part, Method: MethodFallbackSimple})
		}
		return sections, nil
	}

	var value any
	if err := json.Unmarshal([]byte(content), &value); err != nil {
		sections, _ := s.text.Split(content)
		for i := range sections {
			sections[i].Method = MethodFallbackText
		}
		return sections, nil
	}

	var sections []Section
	s.walk("root", value, 0, nil, &sections)
	return sections, nil
}

// walk emits a section for the element if its serialisation fits the budget,
// otherwise recurses into children. Arrays longer than MaxArrayItems are
// batched regardless of size.
func (s *JSONStrategy) walk(name string, value any, depth int, path []string, out *[]Section) {
	if arr, ok := value.([]any); ok && len(arr) > s.cfg.MaxArrayItems {
		s.walkArray(name, arr, depth, path, out)
		return
	}

	serialized := mustMarshal(value)
	if s.cfg.Counter.Count(serialized) <= s.cfg.ChunkSize {
		s.emit(name, serialized, depth, path, out)
		return
	}

	switch v := value.(type) {
	case map[string]any:
		childPath := appendPath(path, name)
		for _, key := range sortedKeys(v) {
			s.walk(key, v[key], depth+1, childPath, out)
		}
	case []any:
		s.walkArray(name, v, depth, path, out)
	default:
		// Oversized primitive (long string). Degrade to the text splitter
		// but keep the element's place in the tree.
		childPath := appendPath(path, name)
		for _, part := range s.text.splitBudget(serialized) {
			s.emit(name, part, depth, childPath[:len(childPath)-1], out)
		}
	}
}

// walkArray emits batches of at most MaxArrayItems items. Batches that still
// exceed the budget recurse per item.
func (s *JSONStrategy) walkArray(name string, arr []any, depth int, path []string, out *[]Section) {
	childPath := appendPath(path, name)

	for start := 0; start < len(arr); start += s.cfg.MaxArrayItems {
		end := start + s.cfg.MaxArrayItems
		if end > len(arr) {
			end = len(arr)
		}
		batch := arr[start:end]

		serialized := mustMarshal(batch)
		if s.cfg.Counter.Count(serialized) <= s.cfg.ChunkSize {
			s.emit(fmt.Sprintf("%s[%d:%d]", name, start, end), serialized, depth, path, out)
			continue
		}

		for i, item := range batch {
			s.walk(fmt.Sprintf("[%d]", start+i), item, depth+1, childPath, out)
		}
	}
}

// emit appends one section.
func (s *JSONStrategy) emit(name, content string, depth int, path []string, out *[]Section) {
	*out = append(*out, Section{
		Content:   content,
		Title:     name,
		Level:     depth,
		Hierarchy: append([]string(nil), path...),
		Method:    MethodJSON,
	})
}

// mustMarshal serialises a decoded JSON value. Map keys are sorted by
// encoding/json, so output is deterministic for identical input.
func mustMarshal(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		// Decoded JSON values always re-marshal.
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func appendPath(path []string, name string) []string {
	out := make([]string, 0, len(path)+1)
	out = append(out, path...)
	return append(out, name)
}
