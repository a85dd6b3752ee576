package protocol

// Turn is one user submission and its full protocol trace. The identity
// is immutable; the step sequence only ever grows.
type Turn struct {
	ID    string         `json:"id"`
	Steps []ProtocolStep `json:"steps"`
}

// Kinds returns the ordered sequence of step kinds recorded for the turn.
func (t *Turn) Kinds() []StepKind {
	out := make([]StepKind, len(t.Steps))
	for i, s := range t.Steps {
		out[i] = s.Kind
	}
	return out
}

// HasKind reports whether any recorded step has the given kind.
func (t *Turn) HasKind(kind StepKind) bool {
	for _, s := range t.Steps {
		if s.Kind == kind {
			return true
		}
	}
	return false
}
