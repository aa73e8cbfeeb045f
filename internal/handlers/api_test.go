package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"askhub/internal/extract"
	"askhub/internal/storage"
)

type fakeAssembler struct {
	past        []string
	fileContext string
	lastThread  string
}

func (f *fakeAssembler) PastContext(ctx context.Context, userText, channel, threadTS string) []string {
	f.lastThread = threadTS
	return f.past
}

func (f *fakeAssembler) FileContext(ctx context.Context, userID string) string {
	return f.fileContext
}

type fakeResponder struct {
	reply      string
	lastSource string
	calls      int
}

func (f *fakeResponder) Respond(ctx context.Context, userID, userText string, pastContext []string, fileContext, source string) string {
	f.calls++
	f.lastSource = source
	return f.reply
}

type fakeStore struct {
	queries    []storage.QueryRecord
	queriesErr error
	files      []storage.UploadedFile
	savedFiles []storage.UploadedFile
}

func (f *fakeStore) StoreMessage(ctx context.Context, msg storage.Message) (bool, error) {
	return true, nil
}

func (f *fakeStore) SaveQuery(ctx context.Context, rec storage.QueryRecord) error {
	f.queries = append(f.queries, rec)
	return nil
}

func (f *fakeStore) GetQueries(ctx context.Context, userID string) ([]storage.QueryRecord, error) {
	if f.queriesErr != nil {
		return nil, f.queriesErr
	}
	return f.queries, nil
}

func (f *fakeStore) SaveUploadedFile(ctx context.Context, file storage.UploadedFile) error {
	f.savedFiles = append(f.savedFiles, file)
	return nil
}

func (f *fakeStore) GetUploadedFiles(ctx context.Context, userID string) ([]storage.UploadedFile, error) {
	return f.files, nil
}

func (f *fakeStore) MessagesWithoutVectors(ctx context.Context, limit int) ([]storage.Message, error) {
	return nil, nil
}

func (f *fakeStore) Close() error { return nil }

func newTestHandler(assembler *fakeAssembler, responder *fakeResponder, store *fakeStore) *APIHandler {
	return NewAPIHandler(assembler, responder, store, extract.NewExtractor())
}

func decodeError(t *testing.T, body *bytes.Buffer) string {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp.Error
}

func TestHandleChat_missingFields(t *testing.T) {
	h := newTestHandler(&fakeAssembler{}, &fakeResponder{}, &fakeStore{})

	testCases := []struct {
		name string
		body string
	}{
		{"missing both", `{}`},
		{"missing message", `{"userId": "U01"}`},
		{"missing userId", `{"message": "hello"}`},
		{"invalid json", `not json`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			h.HandleChat(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if got := decodeError(t, rec.Body); got != "userId and message are required" {
				t.Errorf("error = %q", got)
			}
		})
	}
}

func TestHandleChat_success(t *testing.T) {
	assembler := &fakeAssembler{past: []string{"past"}}
	responder := &fakeResponder{reply: "the answer"}
	h := newTestHandler(assembler, responder, &fakeStore{})

	body := `{"userId": "U01", "message": "what is the deploy process?"}`
	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.HandleChat(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp chatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Response != "the answer" {
		t.Errorf("response = %q", resp.Response)
	}
	if responder.lastSource != storage.SourceDashboard {
		t.Errorf("source = %q, want dashboard", responder.lastSource)
	}
	if assembler.lastThread != "" {
		t.Errorf("dashboard chat consulted thread history: %q", assembler.lastThread)
	}
}

func TestHandleConversations_missingUserID(t *testing.T) {
	h := newTestHandler(&fakeAssembler{}, &fakeResponder{}, &fakeStore{})

	req := httptest.NewRequest("GET", "/api/conversations", nil)
	rec := httptest.NewRecorder()

	h.HandleConversations(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if got := decodeError(t, rec.Body); got != "userId is required" {
		t.Errorf("error = %q", got)
	}
}

func TestHandleConversations_ordering(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{queries: []storage.QueryRecord{
		{UserMessage: "first", BotResponse: "a1", Source: "slack", Timestamp: base},
		{UserMessage: "second", BotResponse: "a2", Source: "dashboard", Timestamp: base.Add(time.Minute)},
	}}
	h := newTestHandler(&fakeAssembler{}, &fakeResponder{}, store)

	req := httptest.NewRequest("GET", "/api/conversations?userId=U01", nil)
	rec := httptest.NewRecorder()

	h.HandleConversations(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp conversationsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Conversations) != 2 {
		t.Fatalf("got %d conversations", len(resp.Conversations))
	}
	if resp.Conversations[0].UserMessage != "first" || resp.Conversations[1].UserMessage != "second" {
		t.Errorf("ordering not preserved: %+v", resp.Conversations)
	}
}

func TestHandleConversations_storeFailure(t *testing.T) {
	store := &fakeStore{queriesErr: errors.New("connection refused")}
	h := newTestHandler(&fakeAssembler{}, &fakeResponder{}, store)

	req := httptest.NewRequest("GET", "/api/conversations?userId=U01", nil)
	rec := httptest.NewRecorder()

	h.HandleConversations(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if got := decodeError(t, rec.Body); got != "internal server error" {
		t.Errorf("error = %q", got)
	}
}

func multipartUpload(t *testing.T, userID, filename, mimeType, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if filename != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		header.Set("Content-Type", mimeType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}

	if userID != "" {
		if err := writer.WriteField("userId", userID); err != nil {
			t.Fatal(err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", "/api/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandleUpload_noFile(t *testing.T) {
	h := newTestHandler(&fakeAssembler{}, &fakeResponder{}, &fakeStore{})

	req := multipartUpload(t, "U01", "", "", "")
	rec := httptest.NewRecorder()

	h.HandleUpload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if got := decodeError(t, rec.Body); got != "no file attached" {
		t.Errorf("error = %q", got)
	}
}

func TestHandleUpload_unsupportedType(t *testing.T) {
	store := &fakeStore{}
	h := newTestHandler(&fakeAssembler{}, &fakeResponder{}, store)

	req := multipartUpload(t, "U01", "pic.png", "image/png", "\x89PNG")
	rec := httptest.NewRecorder()

	h.HandleUpload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if got := decodeError(t, rec.Body); got != "unsupported file type" {
		t.Errorf("error = %q", got)
	}
	if len(store.savedFiles) != 0 {
		t.Errorf("unsupported upload was persisted: %+v", store.savedFiles)
	}
}

func TestHandleUpload_plainText(t *testing.T) {
	store := &fakeStore{}
	h := newTestHandler(&fakeAssembler{}, &fakeResponder{}, store)

	req := multipartUpload(t, "U01", "notes.txt", "text/plain", "meeting notes")
	rec := httptest.NewRecorder()

	h.HandleUpload(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var resp uploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ExtractedText != "meeting notes" {
		t.Errorf("extractedText = %q", resp.ExtractedText)
	}
	if len(store.savedFiles) != 1 {
		t.Fatalf("expected 1 saved file, got %d", len(store.savedFiles))
	}
	saved := store.savedFiles[0]
	if saved.UserID != "U01" || saved.FileName != "notes.txt" || saved.FileType != "text/plain" || saved.FileContent != "meeting notes" {
		t.Errorf("unexpected record %+v", saved)
	}
}

func TestHandleUpload_csv(t *testing.T) {
	store := &fakeStore{}
	h := newTestHandler(&fakeAssembler{}, &fakeResponder{}, store)

	req := multipartUpload(t, "U01", "data.csv", "text/csv", "a,b\nc,d\n")
	rec := httptest.NewRecorder()

	h.HandleUpload(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp uploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ExtractedText != "a b\nc d\n" {
		t.Errorf("extractedText = %q, want %q", resp.ExtractedText, "a b\nc d\n")
	}
}
