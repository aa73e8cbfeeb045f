package slack

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// ThreadSource fetches prior thread messages from the Slack API. It backs
// the context assembler's thread-history stage.
type ThreadSource struct {
	client *slack.Client
}

func NewThreadSource(client *slack.Client) *ThreadSource {
	return &ThreadSource{client: client}
}

// ThreadMessages returns the texts of up to limit messages in the thread,
// chronological order, keeping only plain user messages (any non-empty
// subtype marks a system- or bot-generated message).
func (t *ThreadSource) ThreadMessages(ctx context.Context, channel, threadTS string, limit int) ([]string, error) {
	params := &slack.GetConversationRepliesParameters{
		ChannelID: channel,
		Timestamp: threadTS,
		Limit:     100,
		Inclusive: true,
	}

	msgs, _, _, err := t.client.GetConversationRepliesContext(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get thread messages: %w", err)
	}

	return filterThreadTexts(msgs, limit), nil
}

// filterThreadTexts drops subtyped and empty messages and keeps the most
// recent limit texts in chronological order.
func filterThreadTexts(msgs []slack.Message, limit int) []string {
	var texts []string
	for _, m := range msgs {
		if m.SubType != "" || m.Text == "" {
			continue
		}
		texts = append(texts, m.Text)
	}
	if len(texts) > limit {
		texts = texts[len(texts)-limit:]
	}
	return texts
}
