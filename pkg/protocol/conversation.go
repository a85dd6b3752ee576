package protocol

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// RagContext is the retrieval context attached to an agent reply.
type RagContext struct {
	Query       string         `json:"query"`
	Chunks      []EvidenceItem `json:"chunks"`
	RetrievedAt time.Time      `json:"retrieved_at"`
}

// Message is a single entry in a conversation. Messages carrying a
// TurnID correlate to a protocol timeline in the timeline store.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	AgentID   string         `json:"agent_id,omitempty"`
	Rag       *RagContext    `json:"rag,omitempty"`
	ModelCall *ModelCallInfo `json:"model_call,omitempty"`
	TurnID    string         `json:"turn_id,omitempty"`
}

// Conversation is an ordered message sequence assigned to one agent.
// It is mutated only by appending messages and bumping UpdatedAt.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	AgentID   string    `json:"agent_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}
