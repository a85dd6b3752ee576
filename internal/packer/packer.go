// Package packer assembles the bounded context window sent to a
// generation backend.
package packer

import (
	"fmt"

	"github.com/parley-io/parley/pkg/protocol"
)

const (
	// maxEvidence caps how many retrieval fragments enter the window.
	// Ranking and deduplication are the caller's job; the packer only
	// takes the first maxEvidence items.
	maxEvidence = 3

	tokenBase    = 4
	tokenPerChar = 4 // chars per estimated token
	tokenCeiling = 512
)

// Packer builds context windows with per-item token estimates.
type Packer struct{}

// New creates a Packer.
func New() *Packer {
	return &Packer{}
}

// Pack assembles the window: exactly one system item, exactly one
// history item for the latest user turn, then at most three retrieval
// items from the already-ranked evidence.
func (p *Packer) Pack(systemPrompt, userText string, evidence []protocol.EvidenceItem) []protocol.PackedItem {
	items := make([]protocol.PackedItem, 0, 2+maxEvidence)

	items = append(items, protocol.PackedItem{
		ID:            "ctx-system",
		Kind:          protocol.PackedSystem,
		Text:          systemPrompt,
		TokenEstimate: EstimateTokens(systemPrompt),
		Origin:        "guidance",
	})

	history := fmt.Sprintf("user: %s", userText)
	items = append(items, protocol.PackedItem{
		ID:            "ctx-history",
		Kind:          protocol.PackedHistory,
		Text:          history,
		TokenEstimate: EstimateTokens(history),
		Origin:        "conversation",
	})

	n := len(evidence)
	if n > maxEvidence {
		n = maxEvidence
	}
	for i := 0; i < n; i++ {
		ev := evidence[i]
		text := ev.Snippet
		if ev.Title != "" {
			text = fmt.Sprintf("[%s] %s", ev.Title, ev.Snippet)
		}
		items = append(items, protocol.PackedItem{
			ID:            fmt.Sprintf("ctx-evidence-%d", i+1),
			Kind:          protocol.PackedRetrieval,
			Text:          text,
			TokenEstimate: EstimateTokens(text),
			Origin:        ev.Source,
		})
	}

	return items
}

// EstimateTokens is a cheap deterministic heuristic: a fixed base cost
// plus a length-proportional term, clamped to a per-item ceiling. It is
// not a tokenizer and callers must not treat it as exact.
func EstimateTokens(text string) int {
	est := tokenBase + len(text)/tokenPerChar
	if est > tokenCeiling {
		est = tokenCeiling
	}
	return est
}
