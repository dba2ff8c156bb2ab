// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Agent is the top-level conversational agent. It composes a [ChatClient] with
// a tool [Registry], middleware and an optional [ContextProvider]. The Agent
// itself holds no conversation state; each [Session] it creates owns one.
//
// Create one with [NewAgent] and functional options:
//
//	agent := agentframework.NewAgent(client,
//	    agentframework.WithName("TravelAgent"),
//	    agentframework.WithRegistry(registry),
//	    agentframework.WithContextProvider(provider),
//	)
type Agent struct {
	id                 string
	name               string
	client             ChatClient
	instructions       string
	registry           *Registry
	defaultOptions     *ChatOptions
	contextProvider    ContextProvider
	agentMiddleware    []AgentMiddleware
	chatMiddleware     []ChatMiddleware
	functionMiddleware []FunctionMiddleware
	invocationConfig   InvocationConfig
	logger             *slog.Logger
}

// AgentOption configures an [Agent] via [NewAgent].
type AgentOption func(*Agent)

// WithName sets the agent's display name.
func WithName(name string) AgentOption {
	return func(a *Agent) { a.name = name }
}

// WithInstructions sets the system instructions sent ahead of every model
// pass. They are not recorded in the conversation.
func WithInstructions(instructions string) AgentOption {
	return func(a *Agent) { a.instructions = instructions }
}

// WithRegistry sets the tools the model may call.
func WithRegistry(r *Registry) AgentOption {
	return func(a *Agent) { a.registry = r }
}

// WithDefaultOptions sets default [ChatOptions] for every model pass. Tools
// and ToolChoice are ignored; they follow the registry and the pass.
func WithDefaultOptions(opts *ChatOptions) AgentOption {
	return func(a *Agent) { a.defaultOptions = opts }
}

// WithContextProvider attaches a [ContextProvider] for dynamic context injection.
func WithContextProvider(cp ContextProvider) AgentOption {
	return func(a *Agent) { a.contextProvider = cp }
}

// WithAgentMiddleware adds [AgentMiddleware] around every submit.
func WithAgentMiddleware(mws ...AgentMiddleware) AgentOption {
	return func(a *Agent) { a.agentMiddleware = append(a.agentMiddleware, mws...) }
}

// WithChatMiddleware adds [ChatMiddleware] around every model pass.
func WithChatMiddleware(mws ...ChatMiddleware) AgentOption {
	return func(a *Agent) { a.chatMiddleware = append(a.chatMiddleware, mws...) }
}

// WithFunctionMiddleware adds [FunctionMiddleware] to the tool invocation pipeline.
func WithFunctionMiddleware(mws ...FunctionMiddleware) AgentOption {
	return func(a *Agent) { a.functionMiddleware = append(a.functionMiddleware, mws...) }
}

// WithInvocationConfig overrides the default [InvocationConfig].
func WithInvocationConfig(cfg InvocationConfig) AgentOption {
	return func(a *Agent) { a.invocationConfig = cfg }
}

// WithLogger sets the logger used for diagnostics. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) AgentOption {
	return func(a *Agent) { a.logger = logger }
}

// NewAgent creates an Agent with the given [ChatClient] and options.
func NewAgent(client ChatClient, opts ...AgentOption) *Agent {
	a := &Agent{
		id:               uuid.NewString(),
		client:           client,
		invocationConfig: DefaultInvocationConfig(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// ID returns the agent's unique identifier.
func (a *Agent) ID() string { return a.id }

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.name }

// Registry returns the agent's tool registry, possibly nil.
func (a *Agent) Registry() *Registry { return a.registry }

// NewSession creates a [Session] with an empty conversation.
func (a *Agent) NewSession() *Session {
	return &Session{
		id:    uuid.NewString(),
		agent: a,
		conv:  NewConversation(),
	}
}

// pass runs one streaming model invocation over history followed by pending
// and buffers the whole stream. Any stream failure discards the buffer.
func (a *Agent) pass(ctx context.Context, history, pending []Message, choice ToolChoice) (*ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelStreamAborted, err)
	}

	opts := MergeChatOptions(&ChatOptions{Tools: a.registry.Tools()}, a.defaultOptions)
	opts.ToolChoice = ""
	if len(opts.Tools) > 0 {
		opts.ToolChoice = choice
	}

	messages := make([]Message, 0, len(history)+len(pending))
	messages = append(messages, history...)
	messages = append(messages, pending...)
	messages = PrependInstructions(messages, a.instructions)

	handler := ChainChatMiddleware(a.client.StreamResponse, a.chatMiddleware...)
	stream, err := handler(ctx, messages, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelStreamAborted, err)
	}
	defer stream.Close()

	var updates []ChatResponseUpdate
	for {
		u, ok, err := stream.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrModelStreamAborted, err)
		}
		if !ok {
			break
		}
		updates = append(updates, u)
	}
	// a cancellation racing the end of the stream still aborts the pass
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelStreamAborted, err)
	}

	resp := ChatResponseFromUpdates(updates)
	a.logger.DebugContext(ctx, "model pass completed",
		"agent_id", a.id,
		"message_count", len(messages),
		"tool_choice", string(opts.ToolChoice),
		"updates", len(updates),
		"tool_calls", len(resp.FunctionCalls()),
		"finish_reason", string(resp.FinishReason),
	)
	return resp, nil
}
