package packer

import (
	"strings"
	"testing"

	"github.com/parley-io/parley/pkg/protocol"
)

func evidence(n int) []protocol.EvidenceItem {
	out := make([]protocol.EvidenceItem, n)
	for i := range out {
		out[i] = protocol.EvidenceItem{
			ID:      string(rune('a' + i)),
			Source:  "src",
			Title:   "Title " + string(rune('A'+i)),
			Snippet: "snippet",
		}
	}
	return out
}

func TestPackShape(t *testing.T) {
	p := New()

	for _, n := range []int{0, 1, 3, 7} {
		items := p.Pack("guidance", "hello", evidence(n))

		wantEvidence := n
		if wantEvidence > 3 {
			wantEvidence = 3
		}
		if len(items) != 2+wantEvidence {
			t.Errorf("n=%d: expected %d items, got %d", n, 2+wantEvidence, len(items))
		}
		if items[0].Kind != protocol.PackedSystem {
			t.Errorf("n=%d: first item must be system, got %s", n, items[0].Kind)
		}
		if items[1].Kind != protocol.PackedHistory {
			t.Errorf("n=%d: second item must be history, got %s", n, items[1].Kind)
		}
		for _, it := range items[2:] {
			if it.Kind != protocol.PackedRetrieval {
				t.Errorf("n=%d: trailing item must be retrieval, got %s", n, it.Kind)
			}
		}
	}
}

func TestPackCarriesContent(t *testing.T) {
	p := New()
	items := p.Pack("be grounded", "tell me about rag", evidence(1))

	if items[0].Text != "be grounded" {
		t.Errorf("system text lost: %q", items[0].Text)
	}
	if !strings.Contains(items[1].Text, "tell me about rag") {
		t.Errorf("history text lost: %q", items[1].Text)
	}
	if !strings.Contains(items[2].Text, "Title A") {
		t.Errorf("evidence title not rendered: %q", items[2].Text)
	}
}

func TestEstimateTokens(t *testing.T) {
	t.Run("base plus length term", func(t *testing.T) {
		if got := EstimateTokens(""); got != 4 {
			t.Errorf("expected base cost 4 for empty text, got %d", got)
		}
		if got := EstimateTokens(strings.Repeat("x", 40)); got != 14 {
			t.Errorf("expected 14 for 40 chars, got %d", got)
		}
	})

	t.Run("clamped to ceiling", func(t *testing.T) {
		if got := EstimateTokens(strings.Repeat("x", 100_000)); got != 512 {
			t.Errorf("expected ceiling 512, got %d", got)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		if EstimateTokens("same text") != EstimateTokens("same text") {
			t.Error("estimate must be deterministic")
		}
	})
}
