// Package slack wires inbound Slack events into the context-assembly and
// response pipeline.
package slack

import (
	"context"
	"log/slog"
	"strings"

	"askhub/internal/metrics"
	"askhub/internal/services"
	"askhub/internal/storage"
	"askhub/internal/vectorstore"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// Handler reacts to message and file_shared events delivered over socket
// mode. botUserID is resolved once at startup and passed in; when empty,
// mention detection is disabled and only direct messages trigger replies.
type Handler struct {
	client    *slack.Client
	socket    *socketmode.Client
	botUserID string

	store     storage.Store
	index     vectorstore.Index
	embedder  services.Embedder
	assembler *services.Assembler
	responder *services.Responder
	extractor Extractor
}

// Extractor converts a downloaded file into plain text.
type Extractor interface {
	Extract(path, mimeType string) (string, error)
	Supported(mimeType string) bool
}

func NewHandler(
	client *slack.Client,
	socket *socketmode.Client,
	botUserID string,
	store storage.Store,
	index vectorstore.Index,
	embedder services.Embedder,
	assembler *services.Assembler,
	responder *services.Responder,
	extractor Extractor,
) *Handler {
	return &Handler{
		client:    client,
		socket:    socket,
		botUserID: botUserID,
		store:     store,
		index:     index,
		embedder:  embedder,
		assembler: assembler,
		responder: responder,
		extractor: extractor,
	}
}

// Run processes socket-mode events until ctx is cancelled.
func (h *Handler) Run(ctx context.Context) error {
	go h.handleEvents(ctx)
	return h.socket.RunContext(ctx)
}

func (h *Handler) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-h.socket.Events:
			if !ok {
				return
			}
			if evt.Type != socketmode.EventTypeEventsAPI {
				continue
			}

			eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				slog.Debug("Ignoring non-events-API payload", "type", evt.Type)
				continue
			}
			if evt.Request != nil {
				h.socket.Ack(*evt.Request)
			}

			if eventsAPIEvent.Type != slackevents.CallbackEvent {
				continue
			}

			switch ev := eventsAPIEvent.InnerEvent.Data.(type) {
			case *slackevents.MessageEvent:
				go h.handleMessage(ctx, ev)
			case *slackevents.FileSharedEvent:
				go h.handleFileShared(ctx, ev)
			}
		}
	}
}

// handleMessage ingests an inbound message and decides whether to reply.
// Every non-bot message is persisted and indexed regardless of whether it
// addresses the bot; mentions and DMs additionally get a response.
func (h *Handler) handleMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	if h.shouldIgnore(ev) {
		return
	}

	text := cleanMessageText(ev.Text)
	if text == "" {
		return
	}

	msg := storage.Message{
		SlackMessageID: ev.TimeStamp,
		Channel:        ev.Channel,
		UserID:         ev.User,
		Text:           text,
		ThreadTS:       ev.ThreadTimeStamp,
	}

	if _, err := h.store.StoreMessage(ctx, msg); err != nil {
		metrics.SlackMessagesIngested.WithLabelValues("error").Inc()
		slog.Error("Failed to store message", "error", err, "ts", ev.TimeStamp)
	} else {
		metrics.SlackMessagesIngested.WithLabelValues("success").Inc()
	}

	h.indexMessage(ctx, msg)

	if !h.shouldRespond(ev) {
		return
	}

	past := h.assembler.PastContext(ctx, text, ev.Channel, ev.ThreadTimeStamp)
	fileCtx := h.assembler.FileContext(ctx, ev.User)
	reply := h.responder.Respond(ctx, ev.User, text, past, fileCtx, storage.SourceSlack)

	h.postReply(ctx, ev, reply)
}

// indexMessage upserts the message's embedding into the vector index. An
// embedding failure skips only the vector write; the message row stands.
func (h *Handler) indexMessage(ctx context.Context, msg storage.Message) {
	embedding, err := h.embedder.GenerateEmbedding(ctx, msg.Text)
	if err != nil {
		slog.Warn("Failed to embed message, vector entry skipped", "error", err, "ts", msg.SlackMessageID)
		return
	}

	entry := vectorstore.Entry{
		ID:        msg.SlackMessageID,
		Embedding: embedding,
		Channel:   msg.Channel,
		Text:      msg.Text,
		ThreadTS:  msg.ThreadTS,
	}
	if err := h.index.Upsert(ctx, entry); err != nil {
		metrics.VectorUpserts.WithLabelValues("error").Inc()
		slog.Error("Failed to upsert vector entry", "error", err, "ts", msg.SlackMessageID)
		return
	}
	metrics.VectorUpserts.WithLabelValues("success").Inc()
}

// shouldIgnore filters empty messages and the bot's own echoes so a reply
// never triggers a second reply.
func (h *Handler) shouldIgnore(ev *slackevents.MessageEvent) bool {
	if ev.Text == "" {
		return true
	}
	if ev.SubType != "" {
		return true
	}
	if ev.BotID != "" {
		return true
	}
	if h.botUserID != "" && ev.User == h.botUserID {
		return true
	}
	return false
}

// shouldRespond is true for direct messages and for channel messages that
// mention the bot.
func (h *Handler) shouldRespond(ev *slackevents.MessageEvent) bool {
	if ev.ChannelType == "im" || strings.HasPrefix(ev.Channel, "D") {
		return true
	}
	if h.botUserID == "" {
		return false
	}
	return strings.Contains(ev.Text, "<@"+h.botUserID+">")
}

func (h *Handler) postReply(ctx context.Context, ev *slackevents.MessageEvent, reply string) {
	opts := []slack.MsgOption{slack.MsgOptionText(reply, false)}
	if ev.ThreadTimeStamp != "" {
		opts = append(opts, slack.MsgOptionTS(ev.ThreadTimeStamp))
	}

	if _, _, err := h.client.PostMessageContext(ctx, ev.Channel, opts...); err != nil {
		metrics.SlackRepliesSent.WithLabelValues("error").Inc()
		slog.Error("Failed to post reply", "error", err, "channel", ev.Channel)
		return
	}
	metrics.SlackRepliesSent.WithLabelValues("success").Inc()
}

// cleanMessageText removes user mentions and channel references
func cleanMessageText(text string) string {
	for strings.Contains(text, "<@") {
		start := strings.Index(text, "<@")
		end := strings.Index(text[start:], ">")
		if end == -1 {
			break
		}
		text = text[:start] + text[start+end+1:]
	}

	for strings.Contains(text, "<#") {
		start := strings.Index(text, "<#")
		end := strings.Index(text[start:], ">")
		if end == -1 {
			break
		}
		text = text[:start] + text[start+end+1:]
	}

	return strings.TrimSpace(text)
}
