// Copyright (c) Microsoft. All rights reserved.

package agentframework

import "context"

// ContextProvider injects dynamic context into each submitted query, e.g.
// retrieval-augmented prompts built from a search index.
type ContextProvider interface {
	// Invoking is called before the first model pass of a query. Non-empty
	// Instructions are recorded as a system turn ahead of the user turn.
	Invoking(ctx context.Context, query string) (*InvocationContext, error)
}

// InvocationContext holds the dynamic context returned by a [ContextProvider].
type InvocationContext struct {
	// Instructions is the augmented prompt recorded as a system turn.
	Instructions string

	// Sources identifies the documents the instructions were built from.
	Sources []string
}

// ContextProviderFunc adapts a function to the [ContextProvider] interface.
type ContextProviderFunc func(ctx context.Context, query string) (*InvocationContext, error)

func (f ContextProviderFunc) Invoking(ctx context.Context, query string) (*InvocationContext, error) {
	return f(ctx, query)
}
