package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"knowledge-hub/internal/config"
	"knowledge-hub/internal/models"
)

type stubStore struct {
	results []models.SearchResult
	err     error
	lastK   int
}

func (s *stubStore) Add(ctx context.Context, entries []models.ChunkEmbedding) error { return nil }

func (s *stubStore) Search(ctx context.Context, queryEmbedding []float32, k int) ([]models.SearchResult, error) {
	s.lastK = k
	return s.results, s.err
}

func (s *stubStore) Close() error { return nil }

type stubEmbedder struct{}

func (stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type stubGenerator struct {
	response   string
	err        error
	calls      int
	lastPrompt string
	lastModel  string
}

func (g *stubGenerator) Generate(ctx context.Context, req models.GenerateRequest) (string, error) {
	g.calls++
	g.lastPrompt = req.Prompt
	g.lastModel = req.Model
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func serverKeyConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.LLM.Key = "sk-server"
	return cfg
}

func result(content string) models.SearchResult {
	return models.SearchResult{
		Chunk: models.Chunk{
			Content:        content,
			SourceFilename: "doc.pdf",
			PageNumber:     1,
			ChunkID:        1,
		},
		Similarity: 0.9,
	}
}

func TestQueryEmptyIndexSkipsModel(t *testing.T) {
	gen := &stubGenerator{response: "should never appear"}
	r := NewRAG(&stubStore{}, stubEmbedder{}, gen, serverKeyConfig())

	resp, err := r.Query(context.Background(), "What is the capital of France?", Options{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if resp.Content != models.NoInfoFound {
		t.Errorf("Query() content = %q, want %q", resp.Content, models.NoInfoFound)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times on empty retrieval, want 0", gen.calls)
	}
}

func TestQueryAssemblesRetrievedContext(t *testing.T) {
	store := &stubStore{results: []models.SearchResult{
		result("The capital of France is Paris."),
		result("The Eiffel Tower is in Paris."),
	}}
	gen := &stubGenerator{response: "Paris is the capital of France."}
	r := NewRAG(store, stubEmbedder{}, gen, serverKeyConfig())

	resp, err := r.Query(context.Background(), "What is the capital of France?", Options{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("generator called %d times, want 1", gen.calls)
	}
	if !strings.Contains(gen.lastPrompt, "Paris") {
		t.Errorf("assembled context does not mention Paris: %q", gen.lastPrompt)
	}
	if !strings.Contains(gen.lastPrompt, models.ContextSeparator) {
		t.Errorf("retrieved chunks are not joined with the context separator")
	}
	if !strings.Contains(gen.lastPrompt, "What is the capital of France?") {
		t.Errorf("prompt does not include the question")
	}
	if !strings.Contains(gen.lastPrompt, models.NotFoundSentinel) {
		t.Errorf("prompt does not instruct the not-found sentinel")
	}
	if resp.Content != "Paris is the capital of France." {
		t.Errorf("Query() content = %q", resp.Content)
	}
	if !strings.Contains(resp.Source, "doc.pdf") {
		t.Errorf("Query() source = %q, want provenance", resp.Source)
	}
}

func TestQueryTopKDefaultsFromConfig(t *testing.T) {
	store := &stubStore{results: []models.SearchResult{result("x")}}
	r := NewRAG(store, stubEmbedder{}, &stubGenerator{response: "ok"}, serverKeyConfig())

	if _, err := r.Query(context.Background(), "q", Options{}); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if store.lastK != 5 {
		t.Errorf("Search called with k=%d, want config default 5", store.lastK)
	}

	if _, err := r.Query(context.Background(), "q", Options{TopK: 2}); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if store.lastK != 2 {
		t.Errorf("Search called with k=%d, want override 2", store.lastK)
	}
}

func TestQueryProviderErrorsAreRenderable(t *testing.T) {
	tests := []struct {
		name    string
		genErr  error
		wantSub string
	}{
		{"auth", models.ErrAuthentication, "API key"},
		{"rate limit", models.ErrRateLimit, "rate limiting"},
		{"model missing", models.ErrModelNotFound, "not available"},
		{"timeout", models.ErrProviderTimeout, "did not respond"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubStore{results: []models.SearchResult{result("some context")}}
			r := NewRAG(store, stubEmbedder{}, &stubGenerator{err: tt.genErr}, serverKeyConfig())

			resp, err := r.Query(context.Background(), "q", Options{})
			if err != nil {
				t.Fatalf("Query() must not surface provider errors, got %v", err)
			}
			if !strings.Contains(resp.Content, tt.wantSub) {
				t.Errorf("Query() content = %q, want it to mention %q", resp.Content, tt.wantSub)
			}
		})
	}
}

func TestQueryMissingCredential(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.RAG.CredentialSource = config.CredentialCaller

	gen := &stubGenerator{response: "nope"}
	store := &stubStore{results: []models.SearchResult{result("context")}}
	r := NewRAG(store, stubEmbedder{}, gen, cfg)

	resp, err := r.Query(context.Background(), "q", Options{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if !strings.Contains(resp.Content, "API key") {
		t.Errorf("Query() content = %q, want auth failure message", resp.Content)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times without a credential, want 0", gen.calls)
	}
}

func TestQueryEmptyQuestion(t *testing.T) {
	r := NewRAG(&stubStore{}, stubEmbedder{}, &stubGenerator{}, serverKeyConfig())
	_, err := r.Query(context.Background(), "   ", Options{})
	if !errors.Is(err, models.ErrEmptyInput) {
		t.Errorf("Query() error = %v, want ErrEmptyInput", err)
	}
}
