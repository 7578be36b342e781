package content

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTemplatesSkipsBlankLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "messages.txt")
	data := "Hi there!\n\n  \nLove your work\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write messages file: %v", err)
	}

	lib := NewLibrary(path, filepath.Join(dir, "kb.txt"), nil)
	templates := lib.Templates()

	if len(templates) != 2 {
		t.Fatalf("expected 2 templates, got %d: %v", len(templates), templates)
	}
	if templates[0] != "Hi there!" || templates[1] != "Love your work" {
		t.Errorf("unexpected templates: %v", templates)
	}
}

func TestTemplatesMissingFileReturnsEmpty(t *testing.T) {
	t.Parallel()

	lib := NewLibrary(filepath.Join(t.TempDir(), "nope.txt"), "", nil)
	if templates := lib.Templates(); len(templates) != 0 {
		t.Errorf("expected no templates, got %v", templates)
	}
}

func TestKnowledgeBaseTrims(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "kb.txt")
	if err := os.WriteFile(path, []byte("\n  We sell handmade candles.  \n"), 0644); err != nil {
		t.Fatalf("write knowledge file: %v", err)
	}

	lib := NewLibrary("", path, nil)
	if got := lib.KnowledgeBase(); got != "We sell handmade candles." {
		t.Errorf("unexpected knowledge base: %q", got)
	}
}

func TestKnowledgeBaseMissingFileReturnsEmpty(t *testing.T) {
	t.Parallel()

	lib := NewLibrary("", filepath.Join(t.TempDir(), "nope.txt"), nil)
	if got := lib.KnowledgeBase(); got != "" {
		t.Errorf("expected empty knowledge base, got %q", got)
	}
}
