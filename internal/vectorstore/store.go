package vectorstore

import (
	"context"
	"fmt"

	"knowledge-hub/internal/config"
	"knowledge-hub/internal/models"
)

// Metadata keys stored alongside each index entry.
const (
	MetaSourceFilename = "source_filename"
	MetaPageNumber     = "page_number"
	MetaChunkID        = "chunk_id"
)

// Store is the persisted collection of (chunk, embedding) pairs. The
// collection is append-only: entries are never updated or removed.
// Add calls are serialized by the implementation; Search may run
// concurrently with Add and is not required to observe in-flight
// writes.
type Store interface {
	// Add embeds nothing itself: entries arrive with their vectors and
	// are appended durably. Re-adding identical text creates duplicate
	// entries unless dedup is enabled.
	Add(ctx context.Context, entries []models.ChunkEmbedding) error

	// Search returns up to k entries ranked by descending cosine
	// similarity to the query embedding. An empty collection yields an
	// empty result, never an error.
	Search(ctx context.Context, queryEmbedding []float32, k int) ([]models.SearchResult, error)

	Close() error
}

// Resetter drops every stored entry. Both backends implement it; it
// stays out of Store so the query and ingest paths cannot reach it.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Snapshotter writes and restores an encrypted snapshot of the
// collection. Only the chromem backend implements it.
type Snapshotter interface {
	Export(ctx context.Context) error
	Import(ctx context.Context) error
}

// Open constructs the store backend selected in config.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Type {
	case config.StorePostgres:
		return OpenPostgres(ctx, cfg)
	case config.StoreChromem, "":
		return OpenChromem(cfg)
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Store.Type)
	}
}
