package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"knowledge-hub/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestExtractText(t *testing.T) {
	path := writeFile(t, "notes.txt", "The capital of France is Paris.")

	pages, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("Extract() returned %d pages, want 1", len(pages))
	}
	if pages[0].Number != 1 {
		t.Errorf("page number = %d, want 1", pages[0].Number)
	}
	if !strings.Contains(pages[0].Text, "Paris") {
		t.Errorf("page text = %q, want it to contain Paris", pages[0].Text)
	}
}

func TestExtractMarkdownStripsSyntax(t *testing.T) {
	src := "# Heading\n\nSome *emphasized* text with a [link](https://example.com).\n\n- first item\n- second item\n"
	path := writeFile(t, "doc.md", src)

	pages, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	got := pages[0].Text

	for _, want := range []string{"Heading", "emphasized", "link", "first item", "second item"} {
		if !strings.Contains(got, want) {
			t.Errorf("extracted text missing %q: %q", want, got)
		}
	}
	for _, marker := range []string{"#", "*", "](", "- "} {
		if strings.Contains(got, marker) {
			t.Errorf("extracted text still contains markdown syntax %q: %q", marker, got)
		}
	}
}

func TestExtractFailures(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unsupported format", "image.png", "not text"},
		{"empty text file", "empty.txt", "   \n\t "},
		{"corrupt pdf", "broken.pdf", "this is not a pdf at all"},
		{"corrupt docx", "broken.docx", "zip? what zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			_, err := NewExtractor().Extract(path)
			if err == nil {
				t.Fatal("Extract() succeeded, want error")
			}
			if !errors.Is(err, models.ErrExtraction) {
				t.Errorf("Extract() error = %v, want ErrExtraction", err)
			}
		})
	}
}

func TestExtractMissingFile(t *testing.T) {
	_, err := NewExtractor().Extract(filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, models.ErrExtraction) {
		t.Errorf("Extract() error = %v, want ErrExtraction", err)
	}
}

func TestStripXMLTags(t *testing.T) {
	got := stripXMLTags("<w:p>Hello</w:p><w:p>world</w:p>")
	if !strings.Contains(got, "Hello") || !strings.Contains(got, "world") {
		t.Errorf("stripXMLTags() = %q, want tag-free content", got)
	}
	if strings.Contains(got, "<") || strings.Contains(got, ">") {
		t.Errorf("stripXMLTags() left markup behind: %q", got)
	}
}
