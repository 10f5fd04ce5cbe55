package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"knowledge-hub/internal/chunker"
	"knowledge-hub/internal/config"
	"knowledge-hub/internal/embedding"
	"knowledge-hub/internal/models"
	"knowledge-hub/internal/vectorstore"
)

// Extractor yields a document's text page by page.
type Extractor interface {
	Extract(path string) ([]models.Page, error)
}

// Pipeline runs one document from file to index: extract, chunk,
// embed, append. Operations are independent; the store serializes
// concurrent writers itself. A failure partway may leave earlier
// chunks indexed. There is no rollback, only the guarantee that the
// store stays readable.
type Pipeline struct {
	extractor Extractor
	embedder  embedding.Embedder
	store     vectorstore.Store
	cfg       *config.Config

	// RemoveFailed deletes the source file when ingestion fails, for
	// callers that stage uploads into a scratch directory.
	RemoveFailed bool
}

func NewPipeline(extractor Extractor, embedder embedding.Embedder, store vectorstore.Store, cfg *config.Config) *Pipeline {
	return &Pipeline{extractor: extractor, embedder: embedder, store: store, cfg: cfg}
}

// Ingest processes one document and returns the number of chunks
// appended to the index, the caller's confirmation signal. All
// failures come back as a single *models.IngestionError wrapping the
// cause; the upload is rejected, not crashed on.
func (p *Pipeline) Ingest(ctx context.Context, path string) (int, error) {
	count, err := p.run(ctx, path)
	if err != nil {
		if p.RemoveFailed {
			if rmErr := os.Remove(path); rmErr != nil {
				log.Warn().Err(rmErr).Str("file", path).Msg("Failed to remove rejected upload")
			}
		}
		return 0, &models.IngestionError{Cause: err}
	}
	return count, nil
}

func (p *Pipeline) run(ctx context.Context, path string) (int, error) {
	// The size gate comes first: an oversized document is rejected
	// before any extraction work happens.
	stat, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}
	if limit := p.cfg.RAG.MaxUploadBytes; limit > 0 && stat.Size() > limit {
		return 0, fmt.Errorf("%w: %d bytes over the %d byte limit",
			models.ErrUploadTooLarge, stat.Size(), limit)
	}

	pages, err := p.extractor.Extract(path)
	if err != nil {
		return 0, err
	}

	filename := filepath.Base(path)
	var chunks []models.Chunk
	for _, page := range pages {
		pageChunks, err := chunker.SplitPage(page, filename, p.cfg.RAG.ChunkSize, p.cfg.RAG.ChunkOverlap)
		if err != nil {
			return 0, err
		}
		chunks = append(chunks, pageChunks...)
	}
	if len(chunks) == 0 {
		return 0, models.ErrEmptyInput
	}

	chunkEmbeddings, err := embedding.GenerateEmbedding(ctx, p.embedder, chunks)
	if err != nil {
		return 0, err
	}

	if err := p.store.Add(ctx, chunkEmbeddings); err != nil {
		return 0, err
	}

	log.Info().Str("file", filename).Int("chunks", len(chunks)).Msg("Document ingested")
	return len(chunks), nil
}
