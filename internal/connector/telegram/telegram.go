// Package telegram bridges a Telegram bot to the turn pipeline via
// long polling.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/parley-io/parley/internal/connector"
)

// Config holds Telegram connector configuration.
type Config struct {
	Token     string  // Bot token from @BotFather
	AgentID   string  // Persona answering this bot
	AllowFrom []int64 // Allowed Telegram user IDs (empty = allow all)
}

// Connector implements connector.Connector for Telegram.
type Connector struct {
	bot     botAPI
	config  Config
	handler connector.InboundHandler
	logger  *slog.Logger
	cancel  context.CancelFunc
}

// botAPI is the slice of tgbotapi.BotAPI the connector uses, kept as an
// interface so tests can run without a live bot token.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// New creates a new Telegram connector.
func New(cfg Config, handler connector.InboundHandler, logger *slog.Logger) (*Connector, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("telegram bot authorized", "username", bot.Self.UserName)

	return &Connector{
		bot:     bot,
		config:  cfg,
		handler: handler,
		logger:  logger,
	}, nil
}

func (c *Connector) Name() string { return "telegram" }

// Start begins long-polling for updates. Blocks until context is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := c.bot.GetUpdatesChan(u)

	c.logger.Info("telegram connector started")

	for {
		select {
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			c.handleUpdate(ctx, update.Message)

		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			c.logger.Info("telegram connector stopped")
			return ctx.Err()
		}
	}
}

// Stop gracefully shuts down the connector.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// Send delivers a message to a Telegram chat.
func (c *Connector) Send(_ context.Context, msg connector.OutboundMessage) error {
	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat_id %q: %w", msg.ChatID, err)
	}
	if strings.TrimSpace(msg.Content) == "" {
		c.logger.Warn("skipping empty message", "chat_id", msg.ChatID)
		return nil
	}

	tgMsg := tgbotapi.NewMessage(chatID, msg.Content)
	tgMsg.DisableWebPagePreview = true
	if _, err := c.bot.Send(tgMsg); err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	return nil
}

func (c *Connector) handleUpdate(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	// Access control
	if len(c.config.AllowFrom) > 0 && !allowed(c.config.AllowFrom, userID) {
		c.logger.Warn("unauthorized user", "user_id", userID, "username", msg.From.UserName)
		return
	}

	if msg.IsCommand() {
		c.handleCommand(chatID, msg.Command())
		return
	}

	text := msg.Text
	if text == "" && msg.Caption != "" {
		text = msg.Caption
	}
	if text == "" {
		return
	}

	// Typing indicator while the turn runs.
	c.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))

	inbound := connector.InboundMessage{
		Channel:  c.Name(),
		SenderID: strconv.FormatInt(userID, 10),
		ChatID:   strconv.FormatInt(chatID, 10),
		AgentID:  c.config.AgentID,
		Content:  text,
	}

	reply, err := c.handler(ctx, inbound)
	if err != nil {
		c.logger.Error("telegram turn failed", "chat_id", chatID, "error", err)
		c.bot.Send(tgbotapi.NewMessage(chatID, "Sorry, I could not process that message."))
		return
	}

	if err := c.Send(ctx, connector.OutboundMessage{
		ChatID:  inbound.ChatID,
		Content: reply.Content,
	}); err != nil {
		c.logger.Error("telegram reply failed", "chat_id", chatID, "error", err)
	}
}

func (c *Connector) handleCommand(chatID int64, command string) {
	switch command {
	case "start", "help":
		help := strings.Join([]string{
			"Send me a message and I will answer with evidence from my corpus.",
			"",
			"/help — Show this help message",
		}, "\n")
		c.bot.Send(tgbotapi.NewMessage(chatID, help))
	default:
		c.bot.Send(tgbotapi.NewMessage(chatID, "Unknown command. Try /help."))
	}
}

func allowed(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
