// Copyright (c) Microsoft. All rights reserved.

package agentframework_test

import (
	"context"
	"sync"

	af "github.com/contoso/travelagent/agentframework"
)

// pass scripts one model invocation: the updates it streams and an optional
// error raised after them.
type pass struct {
	updates []af.ChatResponseUpdate
	err     error
}

// mockClient replays scripted passes in order and records every request.
type mockClient struct {
	mu     sync.Mutex
	passes []pass
	calls  []mockCall
}

type mockCall struct {
	messages []af.Message
	opts     *af.ChatOptions
}

func (m *mockClient) StreamResponse(ctx context.Context, msgs []af.Message, opts *af.ChatOptions) (*af.ResponseStream[af.ChatResponseUpdate], error) {
	m.mu.Lock()
	i := len(m.calls)
	m.calls = append(m.calls, mockCall{messages: msgs, opts: opts})
	var p pass
	if i < len(m.passes) {
		p = m.passes[i]
	}
	m.mu.Unlock()

	return af.NewResponseStream(ctx, func(ctx context.Context, ch chan<- af.ChatResponseUpdate) error {
		for _, u := range p.updates {
			select {
			case ch <- u:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return p.err
	}), nil
}

func (m *mockClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockClient) call(i int) mockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[i]
}

func textPass(chunks ...string) pass {
	var p pass
	for _, c := range chunks {
		p.updates = append(p.updates, af.ChatResponseUpdate{
			Role:     af.RoleAssistant,
			Contents: af.Contents{&af.TextContent{Text: c}},
		})
	}
	p.updates = append(p.updates, af.ChatResponseUpdate{FinishReason: af.FinishReasonStop})
	return p
}

type scriptedCall struct {
	id, name, args string
}

func toolPass(calls ...scriptedCall) pass {
	var p pass
	for i, c := range calls {
		p.updates = append(p.updates, af.ChatResponseUpdate{
			Role: af.RoleAssistant,
			Contents: af.Contents{&af.FunctionCallContent{
				Index: i, CallID: c.id, Name: c.name, Arguments: c.args,
			}},
		})
	}
	p.updates = append(p.updates, af.ChatResponseUpdate{FinishReason: af.FinishReasonToolCalls})
	return p
}
