package retrieval

import (
	"path/filepath"
	"strings"
	"testing"
)

func openTestCorpus(t *testing.T) *Corpus {
	t.Helper()
	c, err := OpenCorpus(filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatalf("open corpus: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestOpenSeedsEmptyCorpus(t *testing.T) {
	c := openTestCorpus(t)

	count, err := c.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != len(seedDocuments) {
		t.Errorf("expected %d seeded documents, got %d", len(seedDocuments), count)
	}
}

func TestAllOrderedByRelevance(t *testing.T) {
	c := openTestCorpus(t)

	docs, err := c.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) == 0 {
		t.Fatal("expected seeded documents")
	}
	for i := 1; i < len(docs); i++ {
		if docs[i].Relevance > docs[i-1].Relevance {
			t.Errorf("documents not ordered by relevance at %d", i)
		}
	}
	if docs[0].Title != "Retrieval-Augmented Generation" {
		t.Errorf("expected RAG overview first, got %q", docs[0].Title)
	}
}

func TestAddAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.db")
	c, err := OpenCorpus(path)
	if err != nil {
		t.Fatal(err)
	}

	doc := Document{
		ID:        "doc-custom",
		Source:    "notes/custom.md",
		Title:     "Custom Note",
		Body:      "hand-added content",
		Relevance: 0.33,
	}
	if err := c.Add(doc); err != nil {
		t.Fatal(err)
	}
	c.Close()

	// Reopen: seed must not run again, the added doc must survive.
	c2, err := OpenCorpus(path)
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Close()

	count, err := c2.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != len(seedDocuments)+1 {
		t.Errorf("expected %d documents after reopen, got %d", len(seedDocuments)+1, count)
	}
}

func TestIngestHTML(t *testing.T) {
	c := openTestCorpus(t)

	html := `<html><head><title>Grounding Replies</title></head><body>
		<article>
			<h1>Grounding Replies</h1>
			<p>Grounded replies cite retrieved evidence instead of inventing facts.
			This paragraph exists so the extractor has enough content to keep.</p>
			<p>A second paragraph keeps the readability heuristics satisfied with
			more than a trivial amount of body text to score.</p>
		</article>
	</body></html>`

	doc, err := c.IngestHTML(strings.NewReader(html), "https://example.com/articles/grounding")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if doc.Title == "" {
		t.Error("expected extracted title")
	}
	if !strings.Contains(doc.Body, "cite retrieved evidence") {
		t.Errorf("expected extracted body text, got %q", doc.Body)
	}
	if doc.Source != "example.com/articles/grounding" {
		t.Errorf("unexpected source %q", doc.Source)
	}

	count, err := c.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != len(seedDocuments)+1 {
		t.Errorf("expected ingested doc persisted, count %d", count)
	}
}
