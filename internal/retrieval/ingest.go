package retrieval

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/google/uuid"
)

const (
	maxIngestSize = 50 * 1024 // 50KB of extracted text per document
	fetchTimeout  = 30 * time.Second
	// ingestRelevance is the base score for ingested documents. They
	// rank below the hand-scored seed set until curated.
	ingestRelevance = 0.5
)

// IngestHTML extracts readable text from an HTML document and adds it
// to the corpus. pageURL provides provenance and resolves relative
// links during extraction.
func (c *Corpus) IngestHTML(r io.Reader, pageURL string) (Document, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return Document{}, fmt.Errorf("ingest: invalid URL %q: %w", pageURL, err)
	}

	article, err := readability.FromReader(r, parsed)
	if err != nil {
		return Document{}, fmt.Errorf("ingest: parse: %w", err)
	}

	var textBuf bytes.Buffer
	if err := article.RenderText(&textBuf); err != nil {
		return Document{}, fmt.Errorf("ingest: render: %w", err)
	}
	text := strings.TrimSpace(textBuf.String())
	if text == "" {
		return Document{}, fmt.Errorf("ingest: no readable content at %s", pageURL)
	}
	if len(text) > maxIngestSize {
		text = text[:maxIngestSize]
	}

	doc := Document{
		ID:        "doc-" + uuid.NewString(),
		Source:    parsed.Host + parsed.Path,
		Title:     article.Title(),
		Body:      text,
		URL:       pageURL,
		Relevance: ingestRelevance,
	}
	if err := c.Add(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// IngestURL fetches a page and ingests its readable content.
func (c *Corpus) IngestURL(ctx context.Context, pageURL string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Document{}, fmt.Errorf("ingest: %w", err)
	}
	req.Header.Set("User-Agent", "parley/1.0")

	client := &http.Client{Timeout: fetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("ingest: fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("ingest: fetch %s: HTTP %d", pageURL, resp.StatusCode)
	}
	return c.IngestHTML(resp.Body, pageURL)
}
