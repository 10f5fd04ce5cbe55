package vectorstore

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"knowledge-hub/internal/config"
	"knowledge-hub/internal/helper"
	"knowledge-hub/internal/models"
)

const chromemCompress = false

// ChromemStore persists the collection with chromem-go, one gob file
// per document under the store path. Writers are serialized through a
// mutex; chromem handles concurrent reads on its own.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	dbPath     string
	exportPath string

	dedup         bool
	encryptionKey string

	writeMu sync.Mutex
}

// OpenChromem opens (or creates) the persisted collection at the
// configured path. With in_memory set the collection lives only for
// the process lifetime, which the tests rely on.
func OpenChromem(cfg *config.Config) (*ChromemStore, error) {
	var db *chromem.DB
	var err error
	if cfg.Store.InMemory {
		db = chromem.NewDB()
	} else {
		if err := helper.CreateFolder(cfg.Store.Path); err != nil {
			return nil, fmt.Errorf("failed to create store path: %w", err)
		}
		db, err = chromem.NewPersistentDB(cfg.Store.Path, chromemCompress)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
	}

	collection, err := db.GetOrCreateCollection(cfg.Store.Collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}

	return &ChromemStore{
		db:            db,
		collection:    collection,
		dbPath:        cfg.Store.Path,
		exportPath:    cfg.Store.Path + "/" + cfg.Store.Collection + ".chromem",
		dedup:         cfg.RAG.DedupChunks,
		encryptionKey: cfg.RAG.EncryptionKey,
	}, nil
}

func (s *ChromemStore) Add(ctx context.Context, entries []models.ChunkEmbedding) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(entries))
	for _, entry := range entries {
		id, err := s.entryID(entry)
		if err != nil {
			return err
		}
		docs = append(docs, chromem.Document{
			ID:        id,
			Content:   entry.Content,
			Embedding: entry.Embedding,
			Metadata: map[string]string{
				MetaSourceFilename: entry.SourceFilename,
				MetaPageNumber:     strconv.Itoa(entry.PageNumber),
				MetaChunkID:        strconv.Itoa(entry.ChunkID),
			},
		})
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

func (s *ChromemStore) Search(ctx context.Context, queryEmbedding []float32, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive: got %d", k)
	}

	// chromem rejects queries asking for more results than the
	// collection holds, so clamp instead. An empty collection simply
	// has nothing to say.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := s.collection.QueryEmbedding(ctx, queryEmbedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	// chromem scores documents concurrently and returns equal
	// similarities in whatever order the workers finished. Break ties
	// by ID so the same search always yields the same ordering.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})

	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		page, _ := strconv.Atoi(r.Metadata[MetaPageNumber])
		chunkID, _ := strconv.Atoi(r.Metadata[MetaChunkID])
		out = append(out, models.SearchResult{
			Chunk: models.Chunk{
				Content:        r.Content,
				SourceFilename: r.Metadata[MetaSourceFilename],
				PageNumber:     page,
				ChunkID:        chunkID,
			},
			Similarity: r.Similarity,
		})
	}
	return out, nil
}

func (s *ChromemStore) Close() error { return nil }

// Export writes an encrypted snapshot of the collection next to the
// store, for backup of in-memory runs.
func (s *ChromemStore) Export(ctx context.Context) error {
	if s.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	log.Debug().Str("path", s.exportPath).Msg("Exporting collection")
	if err := s.db.ExportToFile(s.exportPath, chromemCompress, s.encryptionKey, s.collection.Name); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import restores a snapshot previously written by Export. The import
// replaces the collection inside the DB, so the handle is re-fetched.
func (s *ChromemStore) Import(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.db.ImportFromFile(s.exportPath, s.encryptionKey); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	collection := s.db.GetCollection(s.collection.Name, nil)
	if collection == nil {
		return fmt.Errorf("collection %q missing from snapshot", s.collection.Name)
	}
	s.collection = collection
	return nil
}

// Reset drops every stored entry, leaving an empty collection behind.
func (s *ChromemStore) Reset(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	name := s.collection.Name
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	collection, err := s.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to recreate collection: %w", err)
	}
	s.collection = collection
	return nil
}

// entryID derives the stored ID: a content hash when dedup is on, so
// re-ingesting the same text lands on the same entry, otherwise a
// fresh UUID and duplicates accumulate by design.
func (s *ChromemStore) entryID(entry models.ChunkEmbedding) (string, error) {
	if s.dedup {
		return helper.ContentHash(entry.Content), nil
	}
	return helper.GenerateUUID()
}
