package slack

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"askhub/internal/metrics"
	"askhub/internal/storage"

	"github.com/google/uuid"
	"github.com/slack-go/slack/slackevents"
)

// handleFileShared downloads a shared file to a request-scoped temporary
// path, extracts its text, and persists an uploaded-file record. Files with
// unsupported MIME types are skipped without persistence. The temporary
// file is removed once extraction has run.
func (h *Handler) handleFileShared(ctx context.Context, ev *slackevents.FileSharedEvent) {
	file, _, _, err := h.client.GetFileInfoContext(ctx, ev.FileID, 0, 0)
	if err != nil {
		slog.Error("Failed to fetch file info", "error", err, "file_id", ev.FileID)
		return
	}

	if !h.extractor.Supported(file.Mimetype) {
		metrics.FilesProcessed.WithLabelValues(file.Mimetype, "unsupported").Inc()
		slog.Info("Skipping file with unsupported type", "file_id", ev.FileID, "mime_type", file.Mimetype)
		return
	}

	path, err := h.downloadFile(ctx, file.URLPrivateDownload, file.Name)
	if err != nil {
		metrics.FilesProcessed.WithLabelValues(file.Mimetype, "error").Inc()
		slog.Error("Failed to download file", "error", err, "file_id", ev.FileID)
		return
	}
	defer os.Remove(path)

	text, err := h.extractor.Extract(path, file.Mimetype)
	if err != nil {
		metrics.FilesProcessed.WithLabelValues(file.Mimetype, "error").Inc()
		slog.Error("Failed to extract file text", "error", err, "file_id", ev.FileID)
		return
	}

	rec := storage.UploadedFile{
		UserID:      file.User,
		FileName:    file.Name,
		FileType:    file.Mimetype,
		FileContent: text,
		UploadedAt:  time.Now(),
	}
	if err := h.store.SaveUploadedFile(ctx, rec); err != nil {
		metrics.FilesProcessed.WithLabelValues(file.Mimetype, "error").Inc()
		slog.Error("Failed to save uploaded file record", "error", err, "file_id", ev.FileID)
		return
	}

	metrics.FilesProcessed.WithLabelValues(file.Mimetype, "success").Inc()
	slog.Info("Processed shared file", "file_id", ev.FileID, "file_name", file.Name, "text_length", len(text))
}

// downloadFile streams the file contents to a uuid-named temp path so
// concurrent downloads never collide.
func (h *Handler) downloadFile(ctx context.Context, downloadURL, name string) (string, error) {
	path := filepath.Join(os.TempDir(), uuid.New().String()+"_"+filepath.Base(name))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if err := h.client.GetFileContext(ctx, downloadURL, f); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("download file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return path, nil
}
