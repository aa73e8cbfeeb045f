package services

import (
	"context"
	"log/slog"
	"strings"

	"askhub/internal/metrics"
	"askhub/internal/storage"
	"askhub/internal/vectorstore"
)

// pastContextLimit caps both the thread-history window and the number of
// nearest neighbors consulted on the semantic fallback.
const pastContextLimit = 5

// ThreadFetcher returns the texts of up to limit messages in a thread,
// in chronological order.
type ThreadFetcher interface {
	ThreadMessages(ctx context.Context, channel, threadTS string, limit int) ([]string, error)
}

// Embedder converts text into a fixed-length vector.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// FileStore provides a user's uploaded-file records, newest first.
type FileStore interface {
	GetUploadedFiles(ctx context.Context, userID string) ([]storage.UploadedFile, error)
}

// Assembler gathers the context bundle for a user message: prior thread
// messages when the message is threaded, semantically similar history
// otherwise, plus the user's uploaded-file text.
type Assembler struct {
	threads  ThreadFetcher
	embedder Embedder
	index    vectorstore.Index
	files    FileStore
}

func NewAssembler(threads ThreadFetcher, embedder Embedder, index vectorstore.Index, files FileStore) *Assembler {
	return &Assembler{
		threads:  threads,
		embedder: embedder,
		index:    index,
		files:    files,
	}
}

// PastContext returns prior message texts relevant to userText. Thread
// history strictly takes precedence; semantic retrieval runs only when the
// thread yields nothing. Every failure path degrades to an empty result
// rather than aborting the request.
func (a *Assembler) PastContext(ctx context.Context, userText, channel, threadTS string) []string {
	if threadTS != "" {
		msgs, err := a.threads.ThreadMessages(ctx, channel, threadTS, pastContextLimit)
		if err != nil {
			slog.Warn("Failed to fetch thread history", "error", err, "channel", channel, "thread_ts", threadTS)
		}
		if len(msgs) > 0 {
			return msgs
		}
	}

	return a.semanticContext(ctx, userText)
}

// semanticContext embeds userText and resolves its nearest neighbors into
// context strings. A match that belongs to a thread is expanded into that
// thread's messages; otherwise its stored text is used directly.
func (a *Assembler) semanticContext(ctx context.Context, userText string) []string {
	embedding, err := a.embedder.GenerateEmbedding(ctx, userText)
	if err != nil {
		slog.Warn("Failed to embed query, skipping semantic retrieval", "error", err)
		return nil
	}

	matches, err := a.index.Query(ctx, embedding, pastContextLimit)
	if err != nil {
		metrics.VectorQueries.WithLabelValues("error").Inc()
		slog.Warn("Vector query failed, skipping semantic retrieval", "error", err)
		return nil
	}
	metrics.VectorQueries.WithLabelValues("success").Inc()

	var past []string
	for _, m := range matches {
		if m.ThreadTS != "" {
			msgs, err := a.threads.ThreadMessages(ctx, m.Channel, m.ThreadTS, pastContextLimit)
			if err != nil {
				slog.Warn("Failed to expand matched thread", "error", err, "thread_ts", m.ThreadTS)
				continue
			}
			past = append(past, msgs...)
			continue
		}
		past = append(past, m.Text)
	}

	return past
}

// FileContext concatenates the extracted text of the user's uploads,
// newest first, newline separated. Empty string when the user has none or
// the lookup fails.
func (a *Assembler) FileContext(ctx context.Context, userID string) string {
	files, err := a.files.GetUploadedFiles(ctx, userID)
	if err != nil {
		slog.Warn("Failed to fetch uploaded files", "error", err, "user_id", userID)
		return ""
	}

	parts := make([]string, 0, len(files))
	for _, f := range files {
		parts = append(parts, f.FileContent)
	}
	return strings.Join(parts, "\n")
}
