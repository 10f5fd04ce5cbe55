package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/uptrace/bun"

	"knowledge-hub/internal/config"
	"knowledge-hub/internal/db"
	"knowledge-hub/internal/helper"
	"knowledge-hub/internal/models"
)

// PostgresStore keeps the collection in a pgvector table. Same
// append-only contract as the chromem backend; with dedup enabled a
// unique content-hash index backs the conflict handling, without it
// the table accepts duplicate rows.
type PostgresStore struct {
	db    *bun.DB
	dedup bool

	writeMu sync.Mutex
}

func OpenPostgres(ctx context.Context, cfg *config.Config) (*PostgresStore, error) {
	sqldb, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	bunDB := db.NewDB(sqldb, cfg.Database.Debug)
	if err := db.InitDB(ctx, bunDB, cfg.RAG.DedupChunks); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &PostgresStore{db: bunDB, dedup: cfg.RAG.DedupChunks}, nil
}

func (s *PostgresStore) Add(ctx context.Context, entries []models.ChunkEmbedding) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]*db.IndexEntry, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, &db.IndexEntry{
			Content:        entry.Content,
			Embedding:      entry.Embedding,
			SourceFilename: entry.SourceFilename,
			PageNumber:     entry.PageNumber,
			ChunkID:        entry.ChunkID,
			ContentHash:    helper.ContentHash(entry.Content),
		})
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := db.StoreEntries(ctx, s.db, rows, s.dedup); err != nil {
		return fmt.Errorf("failed to store entries: %w", err)
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, queryEmbedding []float32, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive: got %d", k)
	}

	entries, err := db.SearchEntries(ctx, s.db, queryEmbedding, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search entries: %w", err)
	}

	out := make([]models.SearchResult, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.SearchResult{
			Chunk: models.Chunk{
				Content:        e.Content,
				SourceFilename: e.SourceFilename,
				PageNumber:     e.PageNumber,
				ChunkID:        e.ChunkID,
			},
			// Cosine distance is in [0, 2]; flip so higher is closer.
			Similarity: float32(1 - e.Distance),
		})
	}
	return out, nil
}

// Reset drops the table and recreates it empty.
func (s *PostgresStore) Reset(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := db.DropEntries(ctx, s.db); err != nil {
		return fmt.Errorf("failed to drop entries: %w", err)
	}
	return db.InitDB(ctx, s.db, s.dedup)
}

func (s *PostgresStore) Close() error { return s.db.Close() }
