// Copyright (c) Microsoft. All rights reserved.

// Package sqlitesearch is a local full-text search backend built on the
// SQLite FTS5 extension. It serves offline runs and tests in place of Azure
// AI Search.
package sqlitesearch

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/contoso/travelagent/retrieval"
)

// Memory opens a private in-memory database.
const Memory = ":memory:"

const schema = `CREATE VIRTUAL TABLE IF NOT EXISTS documents USING fts5(id UNINDEXED, content)`

var termPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Store is a document index held in one SQLite database file.
type Store struct {
	db *sql.DB
}

var _ retrieval.Backend = (*Store)(nil)

// Open opens the database at path, creating it when needed. Call
// [Store.EnsureIndex] before the first search.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitesearch: open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitesearch: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureIndex creates the full-text table if it does not exist.
func (s *Store) EnsureIndex(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlitesearch: create index: %w", err)
	}
	return nil
}

// Upsert writes docs, replacing any document with the same ID.
func (s *Store) Upsert(ctx context.Context, docs []retrieval.Document) (err error) {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitesearch: upsert: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	del, err := tx.PrepareContext(ctx, `DELETE FROM documents WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("sqlitesearch: upsert: %w", err)
	}
	defer del.Close()
	ins, err := tx.PrepareContext(ctx, `INSERT INTO documents(id, content) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlitesearch: upsert: %w", err)
	}
	defer ins.Close()

	for _, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("sqlitesearch: upsert: document without id")
		}
		if _, err = del.ExecContext(ctx, d.ID); err != nil {
			return fmt.Errorf("sqlitesearch: upsert %s: %w", d.ID, err)
		}
		if _, err = ins.ExecContext(ctx, d.ID, d.Content); err != nil {
			return fmt.Errorf("sqlitesearch: upsert %s: %w", d.ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlitesearch: upsert: %w", err)
	}
	return nil
}

// Count returns the number of indexed documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlitesearch: count: %w", err)
	}
	return n, nil
}

// Search returns up to top documents matching any term of query, best match
// first. A query without searchable terms matches nothing.
func (s *Store) Search(ctx context.Context, query string, top int) ([]retrieval.Document, error) {
	match := matchExpression(query)
	if match == "" || top <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content FROM documents WHERE documents MATCH ? ORDER BY rank LIMIT ?`,
		match, top)
	if err != nil {
		return nil, fmt.Errorf("sqlitesearch: search: %w", err)
	}
	defer rows.Close()

	var docs []retrieval.Document
	for rows.Next() {
		var d retrieval.Document
		if err := rows.Scan(&d.ID, &d.Content); err != nil {
			return nil, fmt.Errorf("sqlitesearch: search: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitesearch: search: %w", err)
	}
	return docs, nil
}

// matchExpression turns free text into an FTS5 query that ORs every quoted
// term. Single characters are dropped.
func matchExpression(query string) string {
	var terms []string
	seen := make(map[string]bool)
	for _, t := range termPattern.FindAllString(strings.ToLower(query), -1) {
		if len([]rune(t)) < 2 || seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, `"`+t+`"`)
	}
	return strings.Join(terms, " OR ")
}
