package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"knowledge-hub/internal/config"
	"knowledge-hub/internal/embedding"
	"knowledge-hub/internal/models"
	"knowledge-hub/internal/vectorstore"
)

// Generator is the single generative-model call the synthesizer needs.
type Generator interface {
	Generate(ctx context.Context, req models.GenerateRequest) (string, error)
}

// RAG answers questions from the index: retrieve top-k chunks, assemble
// a bounded context, and issue one model call constrained to that
// context. The prompt is the hallucination control; there is no
// verification pass.
type RAG struct {
	store    vectorstore.Store
	embedder embedding.Embedder
	llm      Generator
	cfg      *config.Config
}

func NewRAG(store vectorstore.Store, embedder embedding.Embedder, llm Generator, cfg *config.Config) *RAG {
	return &RAG{store: store, embedder: embedder, llm: llm, cfg: cfg}
}

// Options carries per-query overrides. Key is only consulted under the
// caller-supplied credential policy.
type Options struct {
	Model string
	Key   string
	TopK  int
}

// Query runs the retrieval-augmented pipeline. Provider failures are
// folded into the response content as short renderable strings, so
// the caller always gets something it can show and a non-nil error
// only means the query itself was unusable.
func (r *RAG) Query(ctx context.Context, query string, opts Options) (*models.PromptResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.ErrEmptyInput
	}

	resp := &models.PromptResponse{Query: query}

	credential, err := r.cfg.ResolveCredential(opts.Key)
	if err != nil {
		resp.Content = models.UserMessage(err)
		return resp, nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = r.cfg.RAG.TopK
	}

	queryEmbedding, err := embedding.EmbedQuery(ctx, r.embedder, query)
	if err != nil {
		log.Error().Err(err).Msg("Error embedding query")
		resp.Content = models.UserMessage(err)
		return resp, nil
	}

	results, err := r.store.Search(ctx, queryEmbedding, topK)
	if err != nil {
		log.Error().Err(err).Msg("Error searching index")
		resp.Content = models.UserMessage(err)
		return resp, nil
	}

	// Nothing retrieved: answer without burning a model call and
	// without giving the model room to invent one.
	if len(results) == 0 {
		resp.Content = models.NoInfoFound
		return resp, nil
	}

	contextBlock := buildContext(results)
	resp.Source = describeSources(results)

	prompt := fmt.Sprintf(models.AnswerPromptTemplate, models.NotFoundSentinel, contextBlock, query)
	answer, err := r.llm.Generate(ctx, models.GenerateRequest{
		Model:  opts.Model,
		Prompt: prompt,
		Key:    credential,
	})
	if err != nil {
		log.Error().Err(err).Msg("Error generating answer")
		resp.Content = models.UserMessage(err)
		return resp, nil
	}

	resp.Content = answer
	return resp, nil
}

// buildContext joins the retrieved chunk texts with an explicit
// separator so passage boundaries stay visible to the model.
func buildContext(results []models.SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Chunk.Content)
	}
	return strings.Join(parts, models.ContextSeparator)
}

// describeSources lists where the context came from, one line per
// retrieved chunk.
func describeSources(results []models.SearchResult) string {
	var sb strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sb, "%s (page %d, chunk %d)\n",
			r.Chunk.SourceFilename, r.Chunk.PageNumber, r.Chunk.ChunkID)
	}
	return strings.TrimSpace(sb.String())
}
