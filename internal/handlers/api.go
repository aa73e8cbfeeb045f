// Package handlers exposes the dashboard HTTP API: chat, conversation
// history, and file upload.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"askhub/internal/extract"
	"askhub/internal/metrics"
	"askhub/internal/storage"

	"github.com/google/uuid"
)

// ContextAssembler produces the context bundle for a user message.
type ContextAssembler interface {
	PastContext(ctx context.Context, userText, channel, threadTS string) []string
	FileContext(ctx context.Context, userID string) string
}

// ResponseGenerator turns a message plus context into a reply, persisting
// the exchange.
type ResponseGenerator interface {
	Respond(ctx context.Context, userID, userText string, pastContext []string, fileContext, source string) string
}

type APIHandler struct {
	assembler ContextAssembler
	responder ResponseGenerator
	store     storage.Store
	extractor *extract.Extractor
}

func NewAPIHandler(assembler ContextAssembler, responder ResponseGenerator, store storage.Store, extractor *extract.Extractor) *APIHandler {
	return &APIHandler{
		assembler: assembler,
		responder: responder,
		store:     store,
		extractor: extractor,
	}
}

type chatRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type conversationEntry struct {
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	Source      string    `json:"source"`
	Timestamp   time.Time `json:"timestamp"`
}

type conversationsResponse struct {
	Conversations []conversationEntry `json:"conversations"`
}

type uploadResponse struct {
	Message       string `json:"message"`
	ExtractedText string `json:"extractedText"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleChat answers a dashboard question. Dashboard conversations have no
// thread concept, so context comes from semantic retrieval only.
func (h *APIHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "userId and message are required")
		return
	}

	if req.UserID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "userId and message are required")
		return
	}

	ctx := r.Context()
	past := h.assembler.PastContext(ctx, req.Message, "", "")
	fileCtx := h.assembler.FileContext(ctx, req.UserID)
	reply := h.responder.Respond(ctx, req.UserID, req.Message, past, fileCtx, storage.SourceDashboard)

	writeJSON(w, http.StatusOK, chatResponse{Response: reply})
}

// HandleConversations returns a user's exchanges oldest-first.
func (h *APIHandler) HandleConversations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	records, err := h.store.GetQueries(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to fetch conversations", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := conversationsResponse{Conversations: make([]conversationEntry, 0, len(records))}
	for _, rec := range records {
		resp.Conversations = append(resp.Conversations, conversationEntry{
			UserMessage: rec.UserMessage,
			BotResponse: rec.BotResponse,
			Source:      rec.Source,
			Timestamp:   rec.Timestamp,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleUpload accepts a multipart upload, extracts its text, and persists
// an uploaded-file record. The temporary copy is removed after the
// database write.
func (h *APIHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "no file attached")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file attached")
		return
	}
	defer file.Close()

	userID := r.FormValue("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if !h.extractor.Supported(mimeType) {
		metrics.FilesProcessed.WithLabelValues(mimeType, "unsupported").Inc()
		writeError(w, http.StatusBadRequest, "unsupported file type")
		return
	}

	path := filepath.Join(os.TempDir(), uuid.New().String()+"_"+filepath.Base(header.Filename))
	dst, err := os.Create(path)
	if err != nil {
		slog.Error("Failed to create temp file", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer os.Remove(path)

	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		slog.Error("Failed to write temp file", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	dst.Close()

	text, err := h.extractor.Extract(path, mimeType)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedType) {
			writeError(w, http.StatusBadRequest, "unsupported file type")
			return
		}
		metrics.FilesProcessed.WithLabelValues(mimeType, "error").Inc()
		slog.Error("Failed to extract file text", "error", err, "file_name", header.Filename)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	rec := storage.UploadedFile{
		UserID:      userID,
		FileName:    header.Filename,
		FileType:    mimeType,
		FileContent: text,
		UploadedAt:  time.Now(),
	}
	if err := h.store.SaveUploadedFile(r.Context(), rec); err != nil {
		metrics.FilesProcessed.WithLabelValues(mimeType, "error").Inc()
		slog.Error("Failed to save uploaded file record", "error", err, "file_name", header.Filename)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	metrics.FilesProcessed.WithLabelValues(mimeType, "success").Inc()
	writeJSON(w, http.StatusOK, uploadResponse{
		Message:       "file processed successfully",
		ExtractedText: text,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
