package protocol

// PackedKind classifies a fragment of the assembled context window.
type PackedKind string

const (
	PackedSystem      PackedKind = "system"
	PackedInstruction PackedKind = "instruction"
	PackedHistory     PackedKind = "history"
	PackedRetrieval   PackedKind = "retrieval"
	PackedTool        PackedKind = "tool"
	PackedScratchpad  PackedKind = "scratchpad"
)

// PackedItem is one fragment of a context window with its estimated
// token cost. The estimate is a cheap heuristic, not a tokenizer count.
type PackedItem struct {
	ID            string     `json:"id"`
	Kind          PackedKind `json:"kind"`
	Text          string     `json:"text"`
	TokenEstimate int        `json:"token_estimate"`
	Origin        string     `json:"origin,omitempty"`
}

// TotalTokenEstimate sums the token estimates of a context window.
func TotalTokenEstimate(items []PackedItem) int {
	total := 0
	for _, it := range items {
		total += it.TokenEstimate
	}
	return total
}
