package chunking

import (
	"encoding/json"
	"strings"
	"testing"
)

func jsonStrategy(cfg Config) *JSONStrategy {
	return NewJSONStrategy(cfg.withDefaults())
}

func TestJSONSplit_EmptyObject(t *testing.T) {
	s := jsonStrategy(Config{})

	sections, err := s.Split("{}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("expected exactly 1 section, got %d", len(sections))
	}
	if sections[0].Content != "{}" {
		t.Errorf("expected content {}, got %q", sections[0].Content)
	}
	if sections[0].Method != MethodJSON {
		t.Errorf("expected method %q, got %q", MethodJSON, sections[0].Method)
	}
}

func TestJSONSplit_MalformedFallsBackToText(t *testing.T) {
	s := jsonStrategy(Config{})

	sections, err := s.Split(`{"a": }`)
	if err != nil {
		t.Fatalf("malformed JSON must not raise, got %v", err)
	}
	if len(sections) < 1 {
		t.Fatal("expected at least 1 section from fallback")
	}
	for i, sec := range sections {
		if sec.Method != MethodFallbackText {
			t.Errorf("section %d: expected method %q, got %q", i, MethodFallbackText, sec.Method)
		}
	}
}

func TestJSONSplit_LargeFileUsesSimpleSplitter(t *testing.T) {
	s := jsonStrategy(Config{LargeFileBytes: 32})

	content := `{"key": "` + strings.Repeat("x", 100) + `"}`
	sections, err := s.Split(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sections) == 0 {
		t.Fatal("expected sections from simple splitter")
	}
	for i, sec := range sections {
		if sec.Method != MethodFallbackSimple {
			t.Errorf("section %d: expected method %q, got %q", i, MethodFallbackSimple, sec.Method)
		}
	}
}

func TestJSONSplit_RecursesIntoOversizedObject(t *testing.T) {
	// RuneCounter with a small budget forces recursion into properties.
	s := jsonStrategy(Config{ChunkSize: 40, ChunkOverlap: 5, Counter: RuneCounter{}})

	content := `{"alpha": "` + strings.Repeat("a", 30) + `", "beta": "` + strings.Repeat("b", 30) + `"}`
	sections, err := s.Split(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sections) < 2 {
		t.Fatalf("expected recursion into properties, got %d sections", len(sections))
	}

	titles := make(map[string]bool)
	for _, sec := range sections {
		titles[sec.Title] = true
		if len(sec.Hierarchy) == 0 || sec.Hierarchy[0] != "root" {
			t.Errorf("expected hierarchy rooted at root, got %v", sec.Hierarchy)
		}
	}
	if !titles["alpha"] || !titles["beta"] {
		t.Errorf("expected sections for alpha and beta, got %v", titles)
	}
}

func TestJSONSplit_ArrayItemCap(t *testing.T) {
	s := jsonStrategy(Config{MaxArrayItems: 3})

	items := make([]int, 10)
	data, _ := json.Marshal(items)
	sections, err := s.Split(string(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 10 items with a cap of 3 yields 4 batches.
	if len(sections) != 4 {
		t.Fatalf("expected 4 batched sections, got %d", len(sections))
	}
	if sections[0].Title != "root[0:3]" {
		t.Errorf("expected batch title root[0:3], got %q", sections[0].Title)
	}
	if sections[3].Title != "root[9:10]" {
		t.Errorf("expected final batch title root[9:10], got %q", sections[3].Title)
	}
}

func TestJSONSplit_Deterministic(t *testing.T) {
	s := jsonStrategy(Config{ChunkSize: 20, ChunkOverlap: 2, Counter: RuneCounter{}})
	content := `{"b": [1,2,3], "a": {"nested": "value"}, "c": "text"}`

	first, err := s.Split(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.Split(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("section counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Content != second[i].Content {
			t.Errorf("section %d content differs between runs", i)
		}
	}
}
