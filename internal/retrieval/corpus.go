// Package retrieval returns ranked, deduplicated evidence from the
// knowledge corpus. The corpus is a fixed illustrative set stored in
// SQLite so a real index can replace it without touching callers.
package retrieval

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Document is one corpus entry. Relevance is the document's base score;
// the engine derives per-query rankings from it.
type Document struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	URL       string    `json:"url,omitempty"`
	Relevance float64   `json:"relevance"`
	AddedAt   time.Time `json:"added_at"`
}

// Corpus is the SQLite-backed document store.
type Corpus struct {
	db *sql.DB
}

// OpenCorpus opens (or creates) the corpus database, runs migrations,
// and seeds the illustrative document set if the table is empty.
func OpenCorpus(path string) (*Corpus, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("corpus: open: %w", err)
	}

	// Enable WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("corpus: wal: %w", err)
	}

	c := &Corpus{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	if err := c.seed(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Corpus) migrate() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id        TEXT PRIMARY KEY,
			source    TEXT NOT NULL,
			title     TEXT NOT NULL DEFAULT '',
			body      TEXT NOT NULL,
			url       TEXT NOT NULL DEFAULT '',
			relevance REAL NOT NULL DEFAULT 0.5,
			added_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_documents_relevance ON documents(relevance);
	`)
	if err != nil {
		return fmt.Errorf("corpus: migrate: %w", err)
	}
	return nil
}

func (c *Corpus) seed() error {
	count, err := c.Count()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, doc := range seedDocuments {
		if err := c.Add(doc); err != nil {
			return fmt.Errorf("corpus: seed: %w", err)
		}
	}
	return nil
}

// Add inserts or replaces a document, assigning an id when missing.
func (c *Corpus) Add(doc Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.AddedAt.IsZero() {
		doc.AddedAt = time.Now()
	}
	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO documents (id, source, title, body, url, relevance, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Source, doc.Title, doc.Body, doc.URL, doc.Relevance,
		doc.AddedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("corpus: add %s: %w", doc.ID, err)
	}
	return nil
}

// All returns every document ordered by descending base relevance,
// ties broken by insertion time then id so rankings stay deterministic.
func (c *Corpus) All() ([]Document, error) {
	rows, err := c.db.Query(`
		SELECT id, source, title, body, url, relevance, added_at
		FROM documents
		ORDER BY relevance DESC, added_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("corpus: query: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var addedAt string
		if err := rows.Scan(&d.ID, &d.Source, &d.Title, &d.Body, &d.URL, &d.Relevance, &addedAt); err != nil {
			return nil, fmt.Errorf("corpus: scan: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, addedAt); err == nil {
			d.AddedAt = ts
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Count returns the number of documents in the corpus.
func (c *Corpus) Count() (int, error) {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("corpus: count: %w", err)
	}
	return n, nil
}

// Close releases the underlying database handle.
func (c *Corpus) Close() error {
	return c.db.Close()
}
