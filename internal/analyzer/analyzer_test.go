package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"knowledge-hub/internal/config"
	"knowledge-hub/internal/models"
)

type stubExtractor struct {
	pages []models.Page
	err   error
	calls int
}

func (s *stubExtractor) Extract(path string) ([]models.Page, error) {
	s.calls++
	return s.pages, s.err
}

type stubGenerator struct {
	response   string
	err        error
	calls      int
	lastPrompt string
}

func (g *stubGenerator) Generate(ctx context.Context, req models.GenerateRequest) (string, error) {
	g.calls++
	g.lastPrompt = req.Prompt
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.LLM.Key = "sk-server"
	return cfg
}

const validAnalysisJSON = `{
  "summary": "- point one\n- point two",
  "flashcards": [
    {"question": "Q1", "answer": "A1"},
    {"question": "Q2", "answer": "A2"},
    {"question": "Q3", "answer": "A3"},
    {"question": "Q4", "answer": "A4"},
    {"question": "Q5", "answer": "A5"}
  ]
}`

func TestAnalyzeParsesStructuredResponse(t *testing.T) {
	extractor := &stubExtractor{pages: []models.Page{{Number: 1, Text: "document body"}}}
	gen := &stubGenerator{response: validAnalysisJSON}
	a := NewAnalyzer(extractor, gen, testConfig())

	result, err := a.Analyze(context.Background(), "doc.pdf", Options{})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want exactly 1", gen.calls)
	}
	if result.Summary != "- point one\n- point two" {
		t.Errorf("Analyze() summary = %q", result.Summary)
	}
	if len(result.Flashcards) != 5 {
		t.Errorf("Analyze() flashcards = %d, want 5", len(result.Flashcards))
	}
	if !strings.Contains(gen.lastPrompt, "document body") {
		t.Errorf("prompt does not include the document text")
	}
}

func TestAnalyzeStripsMarkdownFences(t *testing.T) {
	extractor := &stubExtractor{pages: []models.Page{{Number: 1, Text: "text"}}}
	gen := &stubGenerator{response: "```json\n" + validAnalysisJSON + "\n```"}
	a := NewAnalyzer(extractor, gen, testConfig())

	result, err := a.Analyze(context.Background(), "doc.pdf", Options{})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(result.Flashcards) != 5 {
		t.Errorf("Analyze() flashcards = %d, want 5 after fence stripping", len(result.Flashcards))
	}
}

func TestAnalyzeMalformedOutputDegrades(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"plain prose", "Here is a lovely summary of your document!"},
		{"truncated json", `{"summary": "partial`},
		{"missing summary", `{"flashcards": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := &stubExtractor{pages: []models.Page{{Number: 1, Text: "text"}}}
			a := NewAnalyzer(extractor, &stubGenerator{response: tt.response}, testConfig())

			result, err := a.Analyze(context.Background(), "doc.pdf", Options{})
			if err != nil {
				t.Fatalf("Analyze() must not propagate parse failures, got %v", err)
			}
			if result.Flashcards == nil || len(result.Flashcards) != 0 {
				t.Errorf("Analyze() flashcards = %v, want empty list", result.Flashcards)
			}
			if result.Summary == "" {
				t.Error("Analyze() degraded result must explain itself in the summary")
			}
		})
	}
}

func TestAnalyzeProviderErrorEmbedded(t *testing.T) {
	extractor := &stubExtractor{pages: []models.Page{{Number: 1, Text: "text"}}}
	a := NewAnalyzer(extractor, &stubGenerator{err: models.ErrRateLimit}, testConfig())

	result, err := a.Analyze(context.Background(), "doc.pdf", Options{})
	if err != nil {
		t.Fatalf("Analyze() must not surface provider errors, got %v", err)
	}
	if !strings.Contains(result.Summary, "rate limiting") {
		t.Errorf("Analyze() summary = %q, want rate limit message", result.Summary)
	}
	if len(result.Flashcards) != 0 {
		t.Errorf("Analyze() flashcards = %d, want 0", len(result.Flashcards))
	}
}

func TestAnalyzeExtractionFailurePropagates(t *testing.T) {
	extractor := &stubExtractor{err: models.ErrExtraction}
	gen := &stubGenerator{response: validAnalysisJSON}
	a := NewAnalyzer(extractor, gen, testConfig())

	_, err := a.Analyze(context.Background(), "broken.pdf", Options{})
	if !errors.Is(err, models.ErrExtraction) {
		t.Errorf("Analyze() error = %v, want ErrExtraction", err)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times on extraction failure, want 0", gen.calls)
	}
}

func TestAnalyzeTruncatesDocument(t *testing.T) {
	cfg := testConfig()
	cfg.RAG.MaxDocumentChars = 50

	long := strings.Repeat("폭넓은 텍스트 ", 100)
	extractor := &stubExtractor{pages: []models.Page{{Number: 1, Text: long}}}
	gen := &stubGenerator{response: validAnalysisJSON}
	a := NewAnalyzer(extractor, gen, cfg)

	if _, err := a.Analyze(context.Background(), "doc.pdf", Options{}); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(gen.lastPrompt) > len(models.AnalysisPromptTemplate)+60 {
		t.Errorf("prompt length %d suggests the document was not truncated", len(gen.lastPrompt))
	}
	if !strings.HasPrefix(gen.lastPrompt, "Analyze the text below") {
		t.Errorf("unexpected prompt prefix: %q", gen.lastPrompt[:40])
	}
	// The truncation must not split a multi-byte rune.
	if !strings.Contains(gen.lastPrompt, "폭넓은") {
		t.Errorf("document content missing from prompt")
	}
}

func TestTruncateRuneBoundary(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
	}{
		{"ascii exact", "abcdef", 3},
		{"inside multibyte rune", "héllo", 2},
		{"no-op under limit", "short", 100},
		{"zero keeps all", "anything", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			if tt.max > 0 && len(got) > tt.max {
				t.Errorf("truncate() length = %d, want <= %d", len(got), tt.max)
			}
			for i, r := range got {
				if r == '�' {
					t.Errorf("truncate() produced invalid UTF-8 at %d", i)
				}
			}
		})
	}
}
