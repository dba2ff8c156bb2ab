// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// LoggingMiddleware returns an [AgentMiddleware] that logs submitted queries using slog.
func LoggingMiddleware(logger *slog.Logger) AgentMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next AgentHandler) AgentHandler {
		return func(ctx context.Context, req *AgentRequest) (*FinalAnswer, error) {
			start := time.Now()
			logger.InfoContext(ctx, "agent run started",
				"session_id", req.SessionID,
				"query_length", len(req.Query),
			)

			answer, err := next(ctx, req)

			duration := time.Since(start)
			if err != nil {
				logger.ErrorContext(ctx, "agent run failed",
					"session_id", req.SessionID,
					"duration", duration,
					"error", err,
				)
				return nil, err
			}

			logger.InfoContext(ctx, "agent run completed",
				"session_id", req.SessionID,
				"duration", duration,
				"answered", answer.Answered(),
				"tool_calls", len(answer.ToolTrace),
				"input_tokens", answer.Usage.InputTokens,
				"output_tokens", answer.Usage.OutputTokens,
			)
			return answer, nil
		}
	}
}

// ToolLoggingMiddleware returns a [FunctionMiddleware] that logs each tool
// invocation with its arguments and outcome.
func ToolLoggingMiddleware(logger *slog.Logger) FunctionMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next FunctionHandler) FunctionHandler {
		return func(ctx context.Context, tool Tool, args json.RawMessage) (string, error) {
			start := time.Now()
			result, err := next(ctx, tool, args)
			if err != nil {
				logger.WarnContext(ctx, "tool call failed",
					"tool", tool.Name(),
					"arguments", string(args),
					"duration", time.Since(start),
					"error", err,
				)
				return result, err
			}
			logger.DebugContext(ctx, "tool call completed",
				"tool", tool.Name(),
				"arguments", string(args),
				"duration", time.Since(start),
				"result_length", len(result),
			)
			return result, nil
		}
	}
}
