package db

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"knowledge-hub/internal/config"
)

// IndexEntry is one stored (chunk, embedding) pair. ContentHash backs
// the optional dedup policy via a unique index.
type IndexEntry struct {
	bun.BaseModel `bun:"table:index_entries,alias:e"`

	ID             int64     `bun:"id,pk,autoincrement"`
	Content        string    `bun:"content,notnull"`
	Embedding      []float32 `bun:"embedding,notnull,type:vector(768)"`
	SourceFilename string    `bun:"source_filename,notnull"`
	PageNumber     int       `bun:"page_number,notnull"`
	ChunkID        int       `bun:"chunk_id,notnull"`
	ContentHash    string    `bun:"content_hash,notnull"`

	// Distance is only populated by similarity queries.
	Distance float64 `bun:"distance,scanonly"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(cfg *config.DBConfig) (*sql.DB, error) {
	dsn := cfg.URL + "?sslmode=disable"
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Key))), nil
}

func InitDB(ctx context.Context, db *bun.DB, dedup bool) error {
	if _, err := db.NewCreateTable().Model((*IndexEntry)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	// Without dedup the hash column carries no uniqueness: re-added
	// text accumulates as duplicate rows. The unique index exists only
	// to back ON CONFLICT when dedup is on.
	if !dedup {
		return nil
	}
	_, err := hashIndexQuery(db).Exec(ctx)
	return err
}

func hashIndexQuery(db *bun.DB) *bun.CreateIndexQuery {
	return db.NewCreateIndex().
		Model((*IndexEntry)(nil)).
		Index("index_entries_content_hash_idx").
		Column("content_hash").
		Unique().
		IfNotExists()
}

// StoreEntries appends a batch of entries. With dedup enabled, rows
// whose content hash is already present are skipped.
func StoreEntries(ctx context.Context, db *bun.DB, entries []*IndexEntry, dedup bool) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := insertQuery(db, &entries, dedup).Exec(ctx)
	return err
}

func insertQuery(db *bun.DB, entries *[]*IndexEntry, dedup bool) *bun.InsertQuery {
	insert := db.NewInsert().Model(entries)
	if dedup {
		insert = insert.On("CONFLICT (content_hash) DO NOTHING")
	}
	return insert
}

// SearchEntries returns the limit nearest entries by cosine distance.
func SearchEntries(ctx context.Context, db *bun.DB, queryEmbedding []float32, limit int) ([]IndexEntry, error) {
	vec := vectorLiteral(queryEmbedding)
	var entries []IndexEntry
	err := db.NewSelect().
		Model(&entries).
		Column("id", "content", "source_filename", "page_number", "chunk_id").
		ColumnExpr("embedding <=> ?::vector AS distance", vec).
		OrderExpr("embedding <=> ?::vector", vec).
		Limit(limit).
		Scan(ctx)
	return entries, err
}

// vectorLiteral renders the pgvector input syntax, e.g. "[0.1,0.2]".
func vectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// DropEntries removes the table, used by maintenance tooling only.
func DropEntries(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*IndexEntry)(nil)).IfExists().Exec(ctx)
	return err
}
