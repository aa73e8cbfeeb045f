package storage

import (
	"context"
	"time"
)

// Source tags for query records. Every record carries exactly one of these.
const (
	SourceSlack     = "slack"
	SourceDashboard = "dashboard"
)

// Message is an inbound Slack message persisted for audit and history.
// Rows are keyed by the platform message ID and never mutated after insert
// (a conflicting re-delivery overwrites the text in place).
type Message struct {
	SlackMessageID string    `json:"slack_message_id"`
	Channel        string    `json:"channel"`
	UserID         string    `json:"user_id"`
	Text           string    `json:"text"`
	ThreadTS       string    `json:"thread_ts,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// QueryRecord is one question/answer exchange. Append-only.
type QueryRecord struct {
	UserID      string    `json:"user_id"`
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	Source      string    `json:"source"`
	Timestamp   time.Time `json:"timestamp"`
}

// UploadedFile holds the extracted text of a processed upload. Append-only;
// a user may have many rows, newest-first ordering is the context default.
type UploadedFile struct {
	UserID      string    `json:"user_id"`
	FileName    string    `json:"file_name"`
	FileType    string    `json:"file_type"`
	FileContent string    `json:"file_content"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type Store interface {
	StoreMessage(ctx context.Context, msg Message) (bool, error)
	SaveQuery(ctx context.Context, rec QueryRecord) error
	GetQueries(ctx context.Context, userID string) ([]QueryRecord, error)
	SaveUploadedFile(ctx context.Context, file UploadedFile) error
	GetUploadedFiles(ctx context.Context, userID string) ([]UploadedFile, error)
	MessagesWithoutVectors(ctx context.Context, limit int) ([]Message, error)
	Close() error
}
