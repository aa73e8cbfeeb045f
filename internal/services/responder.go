package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"askhub/internal/metrics"
	"askhub/internal/storage"

	"github.com/sashabaranov/go-openai"
)

const (
	completionModel       = "gpt-4o-mini"
	completionTemperature = 0.7
	completionMaxTokens   = 1000

	systemPrompt = "You are a helpful assistant that answers questions using the prior conversation context and any uploaded document content provided. Be concise and accurate."

	// apologyMessage is returned verbatim whenever the completion call fails.
	apologyMessage = "Sorry, I'm having trouble coming up with a response right now. Please try again in a moment."
)

// ChatCompleter is the subset of the OpenAI client used for completions.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// QueryStore persists question/answer exchanges.
type QueryStore interface {
	SaveQuery(ctx context.Context, rec storage.QueryRecord) error
}

// Responder turns a user message plus its context bundle into a reply and
// records the exchange.
type Responder struct {
	client ChatCompleter
	store  QueryStore
}

func NewResponder(client ChatCompleter, store QueryStore) *Responder {
	return &Responder{client: client, store: store}
}

// Respond generates a reply for userText given the assembled context and
// persists a query record tagged with source. Provider failures degrade to
// a fixed apology; the record is written in every case.
func (r *Responder) Respond(ctx context.Context, userID, userText string, pastContext []string, fileContext, source string) string {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	reply := apologyMessage

	start := time.Now()
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       completionModel,
		MaxTokens:   completionMaxTokens,
		Temperature: completionTemperature,
		Messages:    buildMessages(userText, pastContext, fileContext),
	})
	metrics.CompletionCallDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.CompletionCalls.WithLabelValues("error").Inc()
		slog.Error("Chat completion failed", "error", err, "user_id", userID)
	} else {
		metrics.CompletionCalls.WithLabelValues("success").Inc()
		if len(resp.Choices) > 0 {
			reply = resp.Choices[0].Message.Content
		}
	}

	rec := storage.QueryRecord{
		UserID:      userID,
		UserMessage: userText,
		BotResponse: reply,
		Source:      source,
		Timestamp:   time.Now(),
	}
	if err := r.store.SaveQuery(ctx, rec); err != nil {
		slog.Error("Failed to persist query record", "error", err, "user_id", userID, "source", source)
	}
	metrics.QueriesProcessed.WithLabelValues(source).Inc()

	return reply
}

// buildMessages lays out the completion request: the fixed system prompt,
// one user-role entry per prior-context string, the current user text, and
// (when present) a final entry carrying the uploaded-file text.
func buildMessages(userText string, pastContext []string, fileContext string) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(pastContext)+3)

	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})

	for _, past := range pastContext {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: past,
		})
	}

	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userText,
	})

	if fileContext != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf("The user has uploaded documents with the following content:\n%s", fileContext),
		})
	}

	return msgs
}
