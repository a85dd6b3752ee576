package protocol

// ChatMessage is a single role/content pair in a generation request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RagDirective tells a backend whether and how much to retrieve.
type RagDirective struct {
	Enable bool `json:"enable"`
	K      int  `json:"k"`
}

// GenerationRequest holds everything a backend needs for one turn.
type GenerationRequest struct {
	Messages []ChatMessage  `json:"messages"`
	AgentID  string         `json:"agent_id"`
	Params   map[string]any `json:"params,omitempty"`
	Rag      RagDirective   `json:"rag"`
}

// GenerationResult is the parsed outcome of a generation call.
type GenerationResult struct {
	Content   string         `json:"content"`
	Context   *RagContext    `json:"context,omitempty"`
	ModelCall *ModelCallInfo `json:"model_call,omitempty"`
	Steps     []ProtocolStep `json:"protocol_steps,omitempty"`
}

// ModelCallInfo records metadata about a single model invocation.
type ModelCallInfo struct {
	Model            string             `json:"model"`
	Params           map[string]float64 `json:"params,omitempty"`
	PromptTokens     int                `json:"prompt_tokens"`
	CompletionTokens int                `json:"completion_tokens"`
	LatencyMS        float64            `json:"latency_ms"`
}

// TotalTokens returns the sum of prompt and completion tokens.
func (m ModelCallInfo) TotalTokens() int {
	return m.PromptTokens + m.CompletionTokens
}
