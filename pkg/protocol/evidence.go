package protocol

import "strings"

// EvidenceItem is a retrieved snippet of supporting content with
// provenance and an optional relevance score (higher = more relevant).
type EvidenceItem struct {
	ID       string            `json:"id"`
	Source   string            `json:"source"`
	Title    string            `json:"title,omitempty"`
	Snippet  string            `json:"snippet"`
	Score    *float64          `json:"score,omitempty"`
	URL      string            `json:"url,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DedupKey returns the normalized key used for retrieval deduplication:
// the lower-cased title, falling back to the source locator when the
// title is empty.
func (e EvidenceItem) DedupKey() string {
	k := e.Title
	if strings.TrimSpace(k) == "" {
		k = e.Source
	}
	return strings.ToLower(strings.TrimSpace(k))
}

// ScoreOrZero returns the relevance score, treating a missing score as 0.
func (e EvidenceItem) ScoreOrZero() float64 {
	if e.Score == nil {
		return 0
	}
	return *e.Score
}
