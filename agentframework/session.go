// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Session drives user queries through an [Agent] and owns the resulting
// [Conversation]. Queries are processed one at a time: a full round trip,
// including tool dispatch and the second model pass, completes before the
// next query starts.
type Session struct {
	mu    sync.Mutex
	id    string
	agent *Agent
	conv  *Conversation
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// History returns a copy of the conversation so far.
func (s *Session) History() []Message { return s.conv.Turns() }

// Len returns the number of turns in the conversation.
func (s *Session) Len() int { return s.conv.Len() }

// Conversation returns the session's conversation for read access, e.g. to
// export a transcript.
func (s *Session) Conversation() *Conversation { return s.conv }

// Submit runs one user query through retrieval, the first model pass, tool
// dispatch when the model asks for tools, and the second model pass.
//
// On success every turn produced for the query is appended at once. On
// failure nothing is appended and the error wraps [ErrModelStreamAborted].
// A query that produces no text and no tool calls appends no assistant turn;
// the returned answer then reports Answered() == false.
func (s *Session) Submit(ctx context.Context, query string) (*FinalAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handler := chainAgentMiddleware(s.submit, s.agent.agentMiddleware...)
	return handler(ctx, &AgentRequest{Query: query, SessionID: s.id})
}

func (s *Session) submit(ctx context.Context, req *AgentRequest) (*FinalAnswer, error) {
	a := s.agent
	history := s.conv.Turns()

	// Composing
	var pending []Message
	var sources []string
	if a.contextProvider != nil {
		invCtx, err := a.contextProvider.Invoking(ctx, req.Query)
		if err != nil {
			return nil, fmt.Errorf("%w: context provider: %w", ErrExecution, err)
		}
		if invCtx != nil {
			if invCtx.Instructions != "" {
				pending = append(pending, NewSystemMessage(invCtx.Instructions))
			}
			sources = invCtx.Sources
		}
		a.logger.DebugContext(ctx, "context provided", "session_id", s.id, "sources", sources)
	}
	pending = append(pending, NewUserMessage(req.Query))

	first, err := a.pass(ctx, history, pending, ToolChoiceAuto)
	if err != nil {
		return nil, err
	}

	answer := &FinalAnswer{Sources: sources, Usage: first.Usage}
	text := first.Text()

	if fcs := first.FunctionCalls(); len(fcs) > 0 {
		calls, results := a.dispatch(ctx, fcs)

		pending = append(pending, NewToolCallMessage(text, calls))
		for i := range results {
			pending = append(pending, NewToolMessage(results[i]))
			answer.ToolTrace = append(answer.ToolTrace, ToolTraceEntry{Call: calls[i], Result: results[i]})
		}
		pending = append(pending, NewSystemMessage(summarizeResults(results)))

		second, err := a.pass(ctx, history, pending, ToolChoiceNone)
		if err != nil {
			return nil, err
		}
		if n := len(second.FunctionCalls()); n > 0 {
			a.logger.WarnContext(ctx, "ignoring tool calls on final pass", "count", n)
		}
		answer.Usage = answer.Usage.Add(second.Usage)
		text = second.Text()
	}

	if text != "" {
		msg := NewAssistantMessage(text)
		if answer.Usage != (UsageDetails{}) {
			msg.Contents = append(msg.Contents, &UsageContent{Usage: answer.Usage})
		}
		pending = append(pending, msg)
		answer.Text = text
	} else {
		a.logger.WarnContext(ctx, "no answer produced", "session_id", s.id)
	}

	for i := range pending {
		pending[i].MessageID = uuid.NewString()
		if pending[i].Role == RoleAssistant && pending[i].AuthorName == "" {
			pending[i].AuthorName = a.name
		}
	}
	s.conv.Append(pending...)
	return answer, nil
}

// summarizeResults renders every tool result of one dispatch as a single
// system note for the final pass.
func summarizeResults(results []ToolResult) string {
	var b strings.Builder
	b.WriteString("Tool results:")
	for _, r := range results {
		b.WriteString("\n- ")
		b.WriteString(r.Name)
		b.WriteString(": ")
		b.WriteString(r.Value)
	}
	return b.String()
}
