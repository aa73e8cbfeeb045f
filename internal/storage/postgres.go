package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

// PostgresStore persists messages, query records, and uploaded files.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// InitSchema creates the relational tables and their indexes.
func (s *PostgresStore) InitSchema() error {
	slog.Info("Initializing database schema...")

	createMessagesTable := `
		CREATE TABLE IF NOT EXISTS messages (
			slack_message_id TEXT PRIMARY KEY,
			channel TEXT NOT NULL,
			user_id TEXT NOT NULL,
			text TEXT NOT NULL,
			thread_ts TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	if _, err := s.db.Exec(createMessagesTable); err != nil {
		return fmt.Errorf("failed to create messages table: %w", err)
	}

	createQueriesTable := `
		CREATE TABLE IF NOT EXISTS queries (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			user_message TEXT NOT NULL,
			bot_response TEXT NOT NULL,
			source TEXT NOT NULL CHECK (source IN ('slack', 'dashboard')),
			timestamp TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	if _, err := s.db.Exec(createQueriesTable); err != nil {
		return fmt.Errorf("failed to create queries table: %w", err)
	}

	createUploadedFilesTable := `
		CREATE TABLE IF NOT EXISTS uploaded_files (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			file_type TEXT NOT NULL,
			file_content TEXT NOT NULL,
			uploaded_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	if _, err := s.db.Exec(createUploadedFilesTable); err != nil {
		return fmt.Errorf("failed to create uploaded_files table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel);",
		"CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_ts);",
		"CREATE INDEX IF NOT EXISTS idx_queries_user ON queries(user_id, timestamp);",
		"CREATE INDEX IF NOT EXISTS idx_uploaded_files_user ON uploaded_files(user_id, uploaded_at DESC);",
	}

	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			slog.Warn("Failed to create index", "error", err, "sql", indexSQL)
		}
	}

	slog.Info("Database schema initialized successfully")
	return nil
}

// StoreMessage upserts a message keyed by its Slack message ID. Returns
// whether a new row was inserted (false when a duplicate delivery or an
// edit updated an existing row).
func (s *PostgresStore) StoreMessage(ctx context.Context, msg Message) (bool, error) {
	query := `
		INSERT INTO messages (slack_message_id, channel, user_id, text, thread_ts)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (slack_message_id)
		DO UPDATE SET text = EXCLUDED.text
		RETURNING (xmax = 0) as was_inserted
	`

	var wasInserted bool
	err := s.db.QueryRowContext(ctx, query,
		msg.SlackMessageID, msg.Channel, msg.UserID, msg.Text, msg.ThreadTS,
	).Scan(&wasInserted)
	if err != nil {
		return false, fmt.Errorf("failed to store message: %w", err)
	}

	return wasInserted, nil
}

// SaveQuery appends one question/answer exchange.
func (s *PostgresStore) SaveQuery(ctx context.Context, rec QueryRecord) error {
	query := `
		INSERT INTO queries (user_id, user_message, bot_response, source, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.UserID, rec.UserMessage, rec.BotResponse, rec.Source, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save query: %w", err)
	}

	return nil
}

// GetQueries returns a user's exchanges in ascending timestamp order.
// Always returns a slice, possibly empty.
func (s *PostgresStore) GetQueries(ctx context.Context, userID string) ([]QueryRecord, error) {
	query := `
		SELECT user_id, user_message, bot_response, source, timestamp
		FROM queries
		WHERE user_id = $1
		ORDER BY timestamp ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get queries: %w", err)
	}
	defer rows.Close()

	records := []QueryRecord{}
	for rows.Next() {
		var rec QueryRecord
		if err := rows.Scan(&rec.UserID, &rec.UserMessage, &rec.BotResponse, &rec.Source, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan query record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// SaveUploadedFile appends an extracted-text record for an upload.
func (s *PostgresStore) SaveUploadedFile(ctx context.Context, file UploadedFile) error {
	query := `
		INSERT INTO uploaded_files (user_id, file_name, file_type, file_content, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		file.UserID, file.FileName, file.FileType, file.FileContent, file.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save uploaded file: %w", err)
	}

	return nil
}

// GetUploadedFiles returns a user's uploads newest-first.
func (s *PostgresStore) GetUploadedFiles(ctx context.Context, userID string) ([]UploadedFile, error) {
	query := `
		SELECT user_id, file_name, file_type, file_content, uploaded_at
		FROM uploaded_files
		WHERE user_id = $1
		ORDER BY uploaded_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get uploaded files: %w", err)
	}
	defer rows.Close()

	files := []UploadedFile{}
	for rows.Next() {
		var f UploadedFile
		if err := rows.Scan(&f.UserID, &f.FileName, &f.FileType, &f.FileContent, &f.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan uploaded file: %w", err)
		}
		files = append(files, f)
	}

	return files, rows.Err()
}

// MessagesWithoutVectors returns stored messages that have no entry in the
// vector index yet, oldest first. Used by the backfill worker.
func (s *PostgresStore) MessagesWithoutVectors(ctx context.Context, limit int) ([]Message, error) {
	query := `
		SELECT m.slack_message_id, m.channel, m.user_id, m.text, m.thread_ts, m.created_at
		FROM messages m
		LEFT JOIN vector_entries v ON v.id = m.slack_message_id
		WHERE v.id IS NULL
		ORDER BY m.created_at ASC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages without vectors: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.SlackMessageID, &msg.Channel, &msg.UserID, &msg.Text, &msg.ThreadTS, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
