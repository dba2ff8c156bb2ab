// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// InvocationConfig controls how tool calls from one model pass are executed.
type InvocationConfig struct {
	// MaxConcurrentTools bounds how many tools run at once. Default: 4.
	MaxConcurrentTools int

	// IncludeDetailedErrors includes full error text in tool results sent
	// back to the model. When false, a generic error message is used.
	IncludeDetailedErrors bool
}

// DefaultInvocationConfig returns the default configuration.
func DefaultInvocationConfig() InvocationConfig {
	return InvocationConfig{
		MaxConcurrentTools:    4,
		IncludeDetailedErrors: true,
	}
}

// dispatch executes every call from one model pass. Calls run concurrently
// but results are returned in emission order, one per call. A failing call
// never fails the batch: its result carries a description of the failure.
func (a *Agent) dispatch(ctx context.Context, fcs []*FunctionCallContent) ([]ToolCall, []ToolResult) {
	calls := make([]ToolCall, len(fcs))
	results := make([]ToolResult, len(fcs))

	limit := a.invocationConfig.MaxConcurrentTools
	if limit <= 0 {
		limit = DefaultInvocationConfig().MaxConcurrentTools
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, fc := range fcs {
		call, decodeErr := toolCallFromContent(fc)
		if call.ID == "" {
			call.ID = "call_" + uuid.NewString()
		}
		calls[i] = call

		g.Go(func() error {
			results[i] = ToolResult{
				CallID: call.ID,
				Name:   call.Name,
				Value:  a.invokeCall(ctx, call, decodeErr),
			}
			return nil
		})
	}
	_ = g.Wait()
	return calls, results
}

// invokeCall runs a single call and renders any failure as result text.
func (a *Agent) invokeCall(ctx context.Context, call ToolCall, decodeErr error) (value string) {
	logger := a.logger.With("tool", call.Name, "call_id", call.ID)

	if decodeErr != nil {
		logger.WarnContext(ctx, "malformed tool arguments", "error", fmt.Errorf("%w: %w", ErrMalformedToolArguments, decodeErr))
		return fmt.Sprintf("Error: could not parse arguments for %s: %v", call.Name, decodeErr)
	}

	tool, ok := a.registry.Lookup(call.Name)
	if !ok {
		logger.WarnContext(ctx, "unknown tool called", "error", fmt.Errorf("%w: %q", ErrUnknownTool, call.Name))
		return a.registry.unknownToolText(call.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "tool panicked", "panic", r)
			value = a.errorText(call.Name, &ToolError{ToolName: call.Name, Err: fmt.Errorf("%w: panic: %v", ErrToolExecution, r)})
		}
	}()

	args := json.RawMessage(call.RawArguments)
	if len(call.Arguments) == 0 {
		args = json.RawMessage("{}")
	}
	handler := chainFunctionMiddleware(func(ctx context.Context, t Tool, args json.RawMessage) (string, error) {
		return t.Invoke(ctx, args)
	}, a.functionMiddleware...)

	result, err := handler(ctx, tool, args)
	if err != nil {
		logger.WarnContext(ctx, "tool invocation error", "error", err)
		return a.errorText(call.Name, err)
	}
	return result
}

func (a *Agent) errorText(name string, err error) string {
	if !a.invocationConfig.IncludeDetailedErrors {
		return fmt.Sprintf("Error: %s failed.", name)
	}
	detail := err.Error()
	var te *ToolError
	if errors.As(err, &te) {
		switch {
		case te.Message != "":
			detail = te.Message
		case te.Err != nil:
			detail = te.Err.Error()
		}
	}
	return fmt.Sprintf("Error: %s failed: %s", name, detail)
}
