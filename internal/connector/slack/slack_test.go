package slackconn

import (
	"context"
	"log/slog"
	"testing"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/parley-io/parley/internal/connector"
	"github.com/parley-io/parley/pkg/protocol"
)

type fakePoster struct {
	channels []string
	count    int
}

func (f *fakePoster) PostMessage(channelID string, _ ...slack.MsgOption) (string, string, error) {
	f.channels = append(f.channels, channelID)
	f.count++
	return channelID, "123.456", nil
}

func newConnector(cfg Config, handler connector.InboundHandler) (*Connector, *fakePoster) {
	p := &fakePoster{}
	return &Connector{
		api:     p,
		config:  cfg,
		handler: handler,
		logger:  slog.New(slog.DiscardHandler),
		botID:   "BOT",
	}, p
}

func TestHandleMessage_RunsTurnAndReplies(t *testing.T) {
	var got connector.InboundMessage
	conn, p := newConnector(Config{AgentID: "writer"}, func(_ context.Context, msg connector.InboundMessage) (*protocol.Message, error) {
		got = msg
		return &protocol.Message{Role: protocol.RoleAgent, Content: "summary ready"}, nil
	})

	conn.handleMessage(context.Background(), &slackevents.MessageEvent{
		User:    "U1",
		Channel: "C1",
		Text:    "summarize the docs",
	})

	if got.ChatID != "C1" || got.AgentID != "writer" || got.SenderID != "U1" {
		t.Errorf("inbound = %+v", got)
	}
	if p.count != 1 || p.channels[0] != "C1" {
		t.Errorf("reply posting = %+v", p)
	}
}

func TestHandleMessage_IgnoresBotsAndSubtypes(t *testing.T) {
	called := false
	conn, _ := newConnector(Config{}, func(context.Context, connector.InboundMessage) (*protocol.Message, error) {
		called = true
		return &protocol.Message{}, nil
	})

	cases := []*slackevents.MessageEvent{
		{BotID: "B9", User: "U1", Channel: "C1", Text: "x"},
		{User: "BOT", Channel: "C1", Text: "x"},
		{User: "U1", Channel: "C1", Text: "x", SubType: "message_changed"},
		{User: "U1", Channel: "C1", Text: ""},
	}
	for _, ev := range cases {
		conn.handleMessage(context.Background(), ev)
	}
	if called {
		t.Error("handler should not run for filtered events")
	}
}

func TestHandleMessage_ChannelFilter(t *testing.T) {
	called := false
	conn, _ := newConnector(Config{Channels: []string{"C-allowed"}}, func(context.Context, connector.InboundMessage) (*protocol.Message, error) {
		called = true
		return &protocol.Message{}, nil
	})

	conn.handleMessage(context.Background(), &slackevents.MessageEvent{User: "U1", Channel: "C-other", Text: "x"})
	if called {
		t.Error("handler should not run outside allowed channels")
	}
}

func TestHandleMention_StripsBotMention(t *testing.T) {
	var got connector.InboundMessage
	conn, _ := newConnector(Config{}, func(_ context.Context, msg connector.InboundMessage) (*protocol.Message, error) {
		got = msg
		return &protocol.Message{Content: "ok"}, nil
	})

	conn.handleMention(context.Background(), &slackevents.AppMentionEvent{
		User:            "U1",
		Channel:         "C1",
		ThreadTimeStamp: "111.222",
		Text:            "<@BOT> what changed?",
	})

	if got.Content != "what changed?" {
		t.Errorf("content = %q", got.Content)
	}
	if got.ChatID != "C1:111.222" {
		t.Errorf("chat id = %q", got.ChatID)
	}
}

func TestStripMention(t *testing.T) {
	if got := StripMention("<@BOT> hello", "BOT"); got != "hello" {
		t.Errorf("got %q", got)
	}
	if got := StripMention("no mention", "BOT"); got != "no mention" {
		t.Errorf("got %q", got)
	}
}

func TestSplitChatID(t *testing.T) {
	ch, ts := splitChatID("C1:111.222")
	if ch != "C1" || ts != "111.222" {
		t.Errorf("got %q %q", ch, ts)
	}
	ch, ts = splitChatID("C1")
	if ch != "C1" || ts != "" {
		t.Errorf("got %q %q", ch, ts)
	}
}
