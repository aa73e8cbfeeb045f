package slack

import (
	"testing"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

func TestCleanMessageText(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "normal text",
			input:    "This is normal text",
			expected: "This is normal text",
		},
		{
			name:     "user mention only",
			input:    "<@U095Z0GRZGS>",
			expected: "",
		},
		{
			name:     "text with user mention",
			input:    "Hello <@U095Z0GRZGS> how are you?",
			expected: "Hello  how are you?",
		},
		{
			name:     "multiple user mentions",
			input:    "<@U095Z0GRZGS> <@U123456789> hello",
			expected: "hello",
		},
		{
			name:     "channel mention only",
			input:    "<#C06DTMSH03E|general>",
			expected: "",
		},
		{
			name:     "text with channel mention",
			input:    "Check out <#C06DTMSH03E|general> channel",
			expected: "Check out  channel",
		},
		{
			name:     "mixed mentions and text",
			input:    "Hey <@U095Z0GRZGS> check <#C06DTMSH03E|general> for updates",
			expected: "Hey  check  for updates",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := cleanMessageText(tc.input)
			if result != tc.expected {
				t.Errorf("Expected '%s', got '%s'", tc.expected, result)
			}
		})
	}
}

func TestShouldIgnore(t *testing.T) {
	h := &Handler{botUserID: "U999BOT"}

	testCases := []struct {
		name   string
		event  slackevents.MessageEvent
		ignore bool
	}{
		{
			name:   "normal user message",
			event:  slackevents.MessageEvent{User: "U1", Text: "hello", Channel: "C1"},
			ignore: false,
		},
		{
			name:   "empty text",
			event:  slackevents.MessageEvent{User: "U1", Text: ""},
			ignore: true,
		},
		{
			name:   "bot_message subtype",
			event:  slackevents.MessageEvent{User: "U1", Text: "hi", SubType: "bot_message"},
			ignore: true,
		},
		{
			name:   "message_changed subtype",
			event:  slackevents.MessageEvent{User: "U1", Text: "hi", SubType: "message_changed"},
			ignore: true,
		},
		{
			name:   "has bot id",
			event:  slackevents.MessageEvent{User: "U1", Text: "hi", BotID: "B123"},
			ignore: true,
		},
		{
			name:   "own echoed reply",
			event:  slackevents.MessageEvent{User: "U999BOT", Text: "here is my answer"},
			ignore: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := h.shouldIgnore(&tc.event); got != tc.ignore {
				t.Errorf("shouldIgnore = %v, want %v", got, tc.ignore)
			}
		})
	}
}

func TestShouldRespond(t *testing.T) {
	testCases := []struct {
		name      string
		botUserID string
		event     slackevents.MessageEvent
		respond   bool
	}{
		{
			name:      "direct message channel prefix",
			botUserID: "U999BOT",
			event:     slackevents.MessageEvent{Channel: "D12345", Text: "hello"},
			respond:   true,
		},
		{
			name:      "im channel type",
			botUserID: "U999BOT",
			event:     slackevents.MessageEvent{Channel: "G12345", ChannelType: "im", Text: "hello"},
			respond:   true,
		},
		{
			name:      "channel mention of bot",
			botUserID: "U999BOT",
			event:     slackevents.MessageEvent{Channel: "C12345", Text: "hey <@U999BOT> what is up"},
			respond:   true,
		},
		{
			name:      "channel message without mention",
			botUserID: "U999BOT",
			event:     slackevents.MessageEvent{Channel: "C12345", Text: "just chatting"},
			respond:   false,
		},
		{
			name:      "mention of another user",
			botUserID: "U999BOT",
			event:     slackevents.MessageEvent{Channel: "C12345", Text: "hey <@U111OTHER> hi"},
			respond:   false,
		},
		{
			name:      "unresolved bot identity disables mentions",
			botUserID: "",
			event:     slackevents.MessageEvent{Channel: "C12345", Text: "hey <@U999BOT> hi"},
			respond:   false,
		},
		{
			name:      "unresolved bot identity still answers DMs",
			botUserID: "",
			event:     slackevents.MessageEvent{Channel: "D12345", Text: "hello"},
			respond:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := &Handler{botUserID: tc.botUserID}
			if got := h.shouldRespond(&tc.event); got != tc.respond {
				t.Errorf("shouldRespond = %v, want %v", got, tc.respond)
			}
		})
	}
}

func TestFilterThreadTexts(t *testing.T) {
	msgs := []slack.Message{
		{Msg: slack.Msg{Text: "root", Timestamp: "1.0"}},
		{Msg: slack.Msg{Text: "joined channel", SubType: "channel_join", Timestamp: "2.0"}},
		{Msg: slack.Msg{Text: "reply one", Timestamp: "3.0"}},
		{Msg: slack.Msg{Text: "", Timestamp: "4.0"}},
		{Msg: slack.Msg{Text: "reply two", Timestamp: "5.0"}},
	}

	got := filterThreadTexts(msgs, 5)
	want := []string{"root", "reply one", "reply two"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("texts[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFilterThreadTexts_limitKeepsMostRecent(t *testing.T) {
	msgs := []slack.Message{
		{Msg: slack.Msg{Text: "one"}},
		{Msg: slack.Msg{Text: "two"}},
		{Msg: slack.Msg{Text: "three"}},
		{Msg: slack.Msg{Text: "four"}},
	}

	got := filterThreadTexts(msgs, 2)
	if len(got) != 2 || got[0] != "three" || got[1] != "four" {
		t.Errorf("got %v, want most recent two in chronological order", got)
	}
}
