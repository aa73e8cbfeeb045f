package jobs

import (
	"context"
	"log/slog"
	"time"

	"askhub/internal/metrics"
	"askhub/internal/storage"
	"askhub/internal/vectorstore"
)

// Embedder converts text into a fixed-length vector.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// MessageSource provides stored messages that have no vector entry yet.
type MessageSource interface {
	MessagesWithoutVectors(ctx context.Context, limit int) ([]storage.Message, error)
}

// VectorBackfill periodically embeds messages whose ingest-time embedding
// failed, so the searchable corpus converges on the message table.
type VectorBackfill struct {
	store     MessageSource
	index     vectorstore.Index
	embedder  Embedder
	batchSize int
	interval  time.Duration
	done      chan struct{}
}

func NewVectorBackfill(store MessageSource, index vectorstore.Index, embedder Embedder) *VectorBackfill {
	return &VectorBackfill{
		store:     store,
		index:     index,
		embedder:  embedder,
		batchSize: 10,
		interval:  60 * time.Second,
		done:      make(chan struct{}),
	}
}

// Start runs the backfill loop until the context is cancelled or Stop is
// called.
func (b *VectorBackfill) Start(ctx context.Context) {
	slog.Info("Starting vector backfill worker",
		slog.Int("batch_size", b.batchSize),
		slog.Duration("interval", b.interval))

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Vector backfill stopped due to context cancellation")
			return
		case <-b.done:
			slog.Info("Vector backfill stopped")
			return
		case <-ticker.C:
			if err := b.processBatch(ctx); err != nil {
				slog.Error("Error processing backfill batch", "error", err)
			}
		}
	}
}

// Stop stops the backfill loop.
func (b *VectorBackfill) Stop() {
	close(b.done)
}

func (b *VectorBackfill) processBatch(ctx context.Context) error {
	messages, err := b.store.MessagesWithoutVectors(ctx, b.batchSize)
	if err != nil {
		return err
	}

	metrics.MessagesWithoutVectors.Set(float64(len(messages)))
	if len(messages) == 0 {
		return nil
	}

	slog.Info("Backfilling vector entries", slog.Int("message_count", len(messages)))

	processed := 0
	for _, msg := range messages {
		embedding, err := b.embedder.GenerateEmbedding(ctx, msg.Text)
		if err != nil {
			slog.Warn("Failed to embed message during backfill",
				"error", err, "ts", msg.SlackMessageID)
			continue
		}

		entry := vectorstore.Entry{
			ID:        msg.SlackMessageID,
			Embedding: embedding,
			Channel:   msg.Channel,
			Text:      msg.Text,
			ThreadTS:  msg.ThreadTS,
		}
		if err := b.index.Upsert(ctx, entry); err != nil {
			metrics.VectorUpserts.WithLabelValues("error").Inc()
			slog.Error("Failed to upsert vector entry during backfill",
				"error", err, "ts", msg.SlackMessageID)
			continue
		}
		metrics.VectorUpserts.WithLabelValues("success").Inc()
		processed++
	}

	slog.Info("Backfill batch complete",
		slog.Int("processed", processed),
		slog.Int("total", len(messages)))

	return nil
}
