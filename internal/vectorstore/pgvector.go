// Package vectorstore wraps the pgvector-backed similarity index. Entries
// are keyed by the source message ID; writes are always upserts.
package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

const embeddingDimensions = 1536

// Entry is one indexed message: its embedding plus the metadata needed to
// resolve it back into conversation context.
type Entry struct {
	ID        string
	Embedding []float32
	Channel   string
	Text      string
	ThreadTS  string
}

// Match is a query result ordered by cosine similarity.
type Match struct {
	ID         string
	Channel    string
	Text       string
	ThreadTS   string
	Similarity float64
}

type Index interface {
	Upsert(ctx context.Context, entry Entry) error
	Query(ctx context.Context, embedding []float32, limit int) ([]Match, error)
}

// PGVectorIndex stores entries in a Postgres table with a vector column.
type PGVectorIndex struct {
	db *sql.DB
}

func NewPGVectorIndex(db *sql.DB) *PGVectorIndex {
	return &PGVectorIndex{db: db}
}

// InitSchema creates the vector extension, the entries table, and the
// similarity index.
func (i *PGVectorIndex) InitSchema() error {
	if _, err := i.db.Exec("CREATE EXTENSION IF NOT EXISTS vector;"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS vector_entries (
			id TEXT PRIMARY KEY,
			embedding VECTOR(%d) NOT NULL,
			channel TEXT NOT NULL,
			text TEXT NOT NULL,
			thread_ts TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`, embeddingDimensions)
	if _, err := i.db.Exec(createTable); err != nil {
		return fmt.Errorf("failed to create vector_entries table: %w", err)
	}

	// ivfflat index creation can fail on an empty table; that is fine.
	indexSQL := "CREATE INDEX IF NOT EXISTS idx_vector_entries_embedding ON vector_entries USING ivfflat (embedding vector_cosine_ops);"
	if _, err := i.db.Exec(indexSQL); err != nil {
		slog.Warn("Could not create vector similarity index", "error", err)
	}

	return nil
}

// Upsert writes an entry, overwriting any existing entry with the same ID.
func (i *PGVectorIndex) Upsert(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO vector_entries (id, embedding, channel, text, thread_ts)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			channel = EXCLUDED.channel,
			text = EXCLUDED.text,
			thread_ts = EXCLUDED.thread_ts
	`

	_, err := i.db.ExecContext(ctx, query,
		entry.ID, pgvector.NewVector(entry.Embedding), entry.Channel, entry.Text, entry.ThreadTS,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert vector entry: %w", err)
	}

	return nil
}

// Query returns the nearest entries to the given embedding by cosine
// distance, most similar first.
func (i *PGVectorIndex) Query(ctx context.Context, embedding []float32, limit int) ([]Match, error) {
	query := `
		SELECT id, channel, text, thread_ts, 1 - (embedding <=> $1) as similarity
		FROM vector_entries
		ORDER BY embedding <=> $1
		LIMIT $2
	`

	rows, err := i.db.QueryContext(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector entries: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Channel, &m.Text, &m.ThreadTS, &m.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan vector match: %w", err)
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}
