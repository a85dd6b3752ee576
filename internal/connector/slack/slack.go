// Package slackconn bridges a Slack app (Socket Mode) to the turn
// pipeline.
package slackconn

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/parley-io/parley/internal/connector"
)

// Config holds Slack connector configuration.
type Config struct {
	BotToken string   // xoxb-... Bot User OAuth Token
	AppToken string   // xapp-... App-Level Token (for Socket Mode)
	AgentID  string   // Persona answering this workspace
	Channels []string // Optional: only respond in these channels (empty = all)
}

// poster is the slice of slack.Client used for outbound messages.
type poster interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

// Connector implements connector.Connector for Slack via Socket Mode.
type Connector struct {
	api     poster
	socket  *socketmode.Client
	config  Config
	handler connector.InboundHandler
	logger  *slog.Logger
	cancel  context.CancelFunc
	botID   string
}

// New creates a new Slack connector.
func New(cfg Config, handler connector.InboundHandler, logger *slog.Logger) (*Connector, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("slack: bot_token is required")
	}
	if cfg.AppToken == "" {
		return nil, fmt.Errorf("slack: app_token is required (Socket Mode)")
	}
	if logger == nil {
		logger = slog.Default()
	}

	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))

	// Test auth and get bot user ID
	authResp, err := api.AuthTest()
	if err != nil {
		return nil, fmt.Errorf("slack: auth test: %w", err)
	}
	logger.Info("slack bot authorized", "user", authResp.User, "team", authResp.Team)

	return &Connector{
		api:     api,
		socket:  socketmode.New(api),
		config:  cfg,
		handler: handler,
		logger:  logger,
		botID:   authResp.UserID,
	}, nil
}

func (c *Connector) Name() string { return "slack" }

// Start begins listening for events via Socket Mode. Blocks until
// context is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	go c.handleEvents(ctx)

	c.logger.Info("slack connector started (socket mode)")
	return c.socket.RunContext(ctx)
}

// Stop gracefully shuts down the connector.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// Send delivers a message to a Slack channel or thread. ChatID is
// either "channel" or "channel:thread_ts".
func (c *Connector) Send(_ context.Context, msg connector.OutboundMessage) error {
	channel, threadTS := splitChatID(msg.ChatID)

	opts := []slack.MsgOption{slack.MsgOptionText(msg.Content, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}

	if _, _, err := c.api.PostMessage(channel, opts...); err != nil {
		return fmt.Errorf("slack: send message: %w", err)
	}
	return nil
}

func (c *Connector) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-c.socket.Events:
			if event.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			eventsAPIEvent, ok := event.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			c.socket.Ack(*event.Request)

			switch ev := eventsAPIEvent.InnerEvent.Data.(type) {
			case *slackevents.MessageEvent:
				c.handleMessage(ctx, ev)
			case *slackevents.AppMentionEvent:
				c.handleMention(ctx, ev)
			}
		}
	}
}

func (c *Connector) handleMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	// Ignore bot messages (including our own) and subtypes like edits.
	if ev.BotID != "" || ev.User == "" || ev.User == c.botID || ev.SubType != "" {
		return
	}
	if !c.isAllowedChannel(ev.Channel) {
		return
	}
	if ev.Text == "" {
		return
	}

	c.runTurn(ctx, ev.User, chatID(ev.Channel, ev.ThreadTimeStamp), ev.Text)
}

func (c *Connector) handleMention(ctx context.Context, ev *slackevents.AppMentionEvent) {
	if ev.User == c.botID {
		return
	}
	text := StripMention(ev.Text, c.botID)
	if text == "" {
		return
	}

	c.runTurn(ctx, ev.User, chatID(ev.Channel, ev.ThreadTimeStamp), text)
}

// runTurn submits the message through the pipeline and posts the agent
// reply back into the originating chat.
func (c *Connector) runTurn(ctx context.Context, user, chat, text string) {
	inbound := connector.InboundMessage{
		Channel:  c.Name(),
		SenderID: user,
		ChatID:   chat,
		AgentID:  c.config.AgentID,
		Content:  text,
	}

	reply, err := c.handler(ctx, inbound)
	if err != nil {
		c.logger.Error("slack turn failed", "chat", chat, "user", user, "error", err)
		return
	}

	if err := c.Send(ctx, connector.OutboundMessage{ChatID: chat, Content: reply.Content}); err != nil {
		c.logger.Error("slack reply failed", "chat", chat, "error", err)
	}
}

func (c *Connector) isAllowedChannel(channel string) bool {
	if len(c.config.Channels) == 0 {
		return true
	}
	for _, ch := range c.config.Channels {
		if ch == channel {
			return true
		}
	}
	return false
}

// chatID groups thread replies with their root message.
func chatID(channel, threadTS string) string {
	if threadTS != "" {
		return channel + ":" + threadTS
	}
	return channel
}

func splitChatID(chat string) (channel, threadTS string) {
	if i := strings.IndexByte(chat, ':'); i >= 0 {
		return chat[:i], chat[i+1:]
	}
	return chat, ""
}

// StripMention removes the <@BOTID> mention from message text.
func StripMention(text, botID string) string {
	mention := fmt.Sprintf("<@%s>", botID)
	return strings.TrimSpace(strings.Replace(text, mention, "", 1))
}
