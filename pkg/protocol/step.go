package protocol

import "time"

// StepKind identifies which pipeline stage produced a protocol step.
type StepKind string

const (
	StepPlan     StepKind = "plan"
	StepRoute    StepKind = "route"
	StepRetrieve StepKind = "retrieve"
	StepRerank   StepKind = "rerank"
	StepPack     StepKind = "pack"
	StepGenerate StepKind = "generate"
	StepReflect  StepKind = "reflect"
	StepTool     StepKind = "tool"
	StepError    StepKind = "error"
)

// Actor identifies the logical agent that produced a step.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// StepIO carries free-form text plus structured fields for a step's
// input or output side.
type StepIO struct {
	Text   string         `json:"text,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// RetrievalRecord captures the query and the final ranked evidence
// attached to a retrieve step.
type RetrievalRecord struct {
	Query string         `json:"query"`
	Items []EvidenceItem `json:"items"`
}

// ProtocolStep is one recorded stage of turn processing. Steps are
// append-only: never mutated after creation.
type ProtocolStep struct {
	ID            string           `json:"id"`
	Kind          StepKind         `json:"kind"`
	Timestamp     time.Time        `json:"timestamp"`
	Actor         Actor            `json:"actor"`
	Input         *StepIO          `json:"input,omitempty"`
	Output        *StepIO          `json:"output,omitempty"`
	Retrieval     *RetrievalRecord `json:"retrieval,omitempty"`
	ContextWindow []PackedItem     `json:"context_window,omitempty"`
	ModelCall     *ModelCallInfo   `json:"model_call,omitempty"`
	Note          string           `json:"note,omitempty"`
}
