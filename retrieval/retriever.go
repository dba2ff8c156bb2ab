// Copyright (c) Microsoft. All rights reserved.

// Package retrieval fetches documents relevant to a query from a search
// backend and composes them into the augmented prompt sent to the model.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	af "github.com/contoso/travelagent/agentframework"
)

// DefaultTimeout bounds a single backend search.
const DefaultTimeout = 10 * time.Second

// Document is a unit of retrievable text.
type Document struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Backend is a search index that can be queried for documents.
// Implementations return documents in rank order, best first.
type Backend interface {
	Search(ctx context.Context, query string, top int) ([]Document, error)
}

// BackendFunc adapts a function to the [Backend] interface.
type BackendFunc func(ctx context.Context, query string, top int) ([]Document, error)

func (f BackendFunc) Search(ctx context.Context, query string, top int) ([]Document, error) {
	return f(ctx, query, top)
}

// Retriever queries a [Backend] once per call and degrades to an empty
// result when the backend fails.
type Retriever struct {
	backend Backend
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a [Retriever].
type Option func(*Retriever)

// WithTimeout sets the per-call search timeout. Zero or negative disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *Retriever) { r.timeout = d }
}

// WithLogger sets the logger for degraded searches.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) { r.logger = logger }
}

// New creates a Retriever over backend.
func New(backend Backend, opts ...Option) *Retriever {
	r := &Retriever{backend: backend, timeout: DefaultTimeout}
	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Retrieve returns at most k documents for query in backend rank order.
// It never fails: a backend error is logged and yields no documents.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) []Document {
	if k <= 0 {
		return nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	docs, err := r.backend.Search(ctx, query, k)
	if err != nil {
		r.logger.WarnContext(ctx, "retrieval degraded to empty context",
			"error", fmt.Errorf("%w: %w", af.ErrRetrievalUnavailable, err),
		)
		return nil
	}
	if len(docs) > k {
		docs = docs[:k]
	}
	r.logger.DebugContext(ctx, "retrieved documents", "count", len(docs), "top", k)
	return docs
}
