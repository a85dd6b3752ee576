package retrieval

import (
	"log/slog"
	"sort"

	"github.com/parley-io/parley/pkg/protocol"
)

const (
	defaultTopK = 5
	// rankDecay penalizes each successive corpus position to reflect
	// diminishing returns among otherwise-similar documents.
	rankDecay = 0.03
)

// Source abstracts the document store so a real index can replace the
// SQLite corpus without changing callers.
type Source interface {
	All() ([]Document, error)
}

// Engine ranks, deduplicates, and truncates corpus documents for a
// query. Results are deterministic for a fixed corpus.
type Engine struct {
	source Source
	topK   int
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTopK overrides the result cap.
func WithTopK(k int) Option {
	return func(e *Engine) { e.topK = k }
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a retrieval engine over the given source.
func NewEngine(source Source, opts ...Option) *Engine {
	e := &Engine{
		source: source,
		topK:   defaultTopK,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve returns the top-K deduplicated evidence items for the query,
// sorted by descending score; a missing score sorts as zero. The score
// is the document's base relevance minus a fixed per-rank decay; it
// stands in for embedding similarity, so the query text does not move
// the ranking and an empty query yields the corpus default ordering.
func (e *Engine) Retrieve(query string) ([]protocol.EvidenceItem, error) {
	docs, err := e.source.All()
	if err != nil {
		return nil, err
	}

	items := make([]protocol.EvidenceItem, 0, len(docs))
	for i, d := range docs {
		score := d.Relevance - float64(i)*rankDecay
		items = append(items, protocol.EvidenceItem{
			ID:      d.ID,
			Source:  d.Source,
			Title:   d.Title,
			Snippet: d.Body,
			Score:   &score,
			URL:     d.URL,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ScoreOrZero() > items[j].ScoreOrZero()
	})

	seen := make(map[string]bool, len(items))
	deduped := items[:0]
	for _, it := range items {
		key := it.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, it)
	}

	if len(deduped) > e.topK {
		deduped = deduped[:e.topK]
	}

	e.logger.Debug("retrieval complete",
		"query", query,
		"candidates", len(docs),
		"returned", len(deduped),
	)
	return deduped, nil
}
