package protocol

// AgentStatus is the observable processing state of an agent. Exactly
// one status holds at any instant per agent.
type AgentStatus string

const (
	AgentIdle       AgentStatus = "idle"
	AgentThinking   AgentStatus = "thinking"
	AgentRetrieving AgentStatus = "retrieving"
	AgentResponding AgentStatus = "responding"
	AgentError      AgentStatus = "error"
	AgentOffline    AgentStatus = "offline"
)

// AgentState is the mutable live state of an agent.
type AgentState struct {
	Status AgentStatus `json:"status"`
	Note   string      `json:"note,omitempty"`
}

// AgentDescriptor describes a named persona with observable state.
type AgentDescriptor struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Icon        string     `json:"icon,omitempty"`
	Expertise   []string   `json:"expertise,omitempty"`
	State       AgentState `json:"state"`
}

// Actor returns the id/name/icon triple used to attribute protocol steps.
func (a AgentDescriptor) Actor() Actor {
	return Actor{ID: a.ID, Name: a.Name, Icon: a.Icon}
}
