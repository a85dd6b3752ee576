// Package connector bridges external chat surfaces (Telegram, Slack,
// webhooks) to the turn pipeline.
package connector

import (
	"context"
	"fmt"

	"github.com/parley-io/parley/pkg/protocol"
)

// Connector is the interface for external messaging platforms.
type Connector interface {
	// Name returns the connector type (e.g., "telegram", "slack").
	Name() string
	// Start begins listening for inbound messages. Blocks until context is cancelled.
	Start(ctx context.Context) error
	// Stop gracefully shuts down the connector.
	Stop() error
	// Send delivers an outbound message to the external platform.
	Send(ctx context.Context, msg OutboundMessage) error
}

// OutboundMessage is an agent reply delivered to an external platform.
type OutboundMessage struct {
	ChatID  string // Platform-specific chat identifier
	Content string // Message text
}

// InboundMessage is a message received from an external platform.
type InboundMessage struct {
	Channel  string // Connector name (e.g., "telegram")
	SenderID string // Platform-specific sender identifier
	ChatID   string // Platform-specific chat identifier
	AgentID  string // Persona that should answer
	Content  string // Message text
}

// InboundHandler runs a turn for an inbound message and returns the
// agent reply.
type InboundHandler func(ctx context.Context, msg InboundMessage) (*protocol.Message, error)

// TurnRunner runs one full turn for a conversation.
type TurnRunner interface {
	Submit(ctx context.Context, conversationID, text string) (*protocol.Message, error)
}

// ConversationEnsurer creates a conversation with a fixed id if it does
// not exist yet.
type ConversationEnsurer interface {
	Ensure(id, title, agentID string) *protocol.Conversation
}

// PipelineHandler builds the InboundHandler shared by all connectors:
// each external chat maps to one stable conversation per channel, and
// every inbound message runs a full turn.
func PipelineHandler(runner TurnRunner, convs ConversationEnsurer) InboundHandler {
	return func(ctx context.Context, msg InboundMessage) (*protocol.Message, error) {
		convID := ConversationID(msg.Channel, msg.ChatID)
		title := fmt.Sprintf("%s chat %s", msg.Channel, msg.ChatID)
		convs.Ensure(convID, title, msg.AgentID)
		return runner.Submit(ctx, convID, msg.Content)
	}
}

// ConversationID derives the stable conversation id for an external chat.
func ConversationID(channel, chatID string) string {
	return channel + ":" + chatID
}
