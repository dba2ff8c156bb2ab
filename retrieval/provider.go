// Copyright (c) Microsoft. All rights reserved.

package retrieval

import (
	"context"

	af "github.com/contoso/travelagent/agentframework"
)

// ContextProvider retrieves documents for each query and hands the composed
// prompt to the agent as a system turn.
type ContextProvider struct {
	retriever *Retriever
	topK      int
}

var _ af.ContextProvider = (*ContextProvider)(nil)

// NewContextProvider creates a provider that retrieves up to topK documents.
func NewContextProvider(r *Retriever, topK int) *ContextProvider {
	return &ContextProvider{retriever: r, topK: topK}
}

// Invoking implements [agentframework.ContextProvider]. It never fails.
func (p *ContextProvider) Invoking(ctx context.Context, query string) (*af.InvocationContext, error) {
	docs := p.retriever.Retrieve(ctx, query, p.topK)
	sources := make([]string, 0, len(docs))
	for _, d := range docs {
		sources = append(sources, d.ID)
	}
	return &af.InvocationContext{
		Instructions: Compose(query, docs),
		Sources:      sources,
	}, nil
}
