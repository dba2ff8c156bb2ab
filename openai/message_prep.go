// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"encoding/json"

	af "github.com/contoso/travelagent/agentframework"
)

// chatRequest is the body of POST /chat/completions.
type chatRequest struct {
	Model         string         `json:"model"`
	Messages      []chatMessage  `json:"messages"`
	Temperature   *float64       `json:"temperature,omitempty"`
	TopP          *float64       `json:"top_p,omitempty"`
	MaxTokens     *int           `json:"max_completion_tokens,omitempty"`
	Stop          []string       `json:"stop,omitempty"`
	Seed          *int           `json:"seed,omitempty"`
	Tools         []toolSpec     `json:"tools,omitempty"`
	ToolChoice    string         `json:"tool_choice,omitempty"`
	User          string         `json:"user,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// chatMessage is one entry of the messages array. Content is a pointer
// because an assistant turn with only tool calls sends no content at all.
type chatMessage struct {
	Role       string     `json:"role"`
	Content    *string    `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type toolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type toolSpec struct {
	Type     string       `json:"type"`
	Function functionSpec `json:"function"`
}

type functionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

func buildRequest(messages []af.Message, opts *af.ChatOptions, defaultModel string) *chatRequest {
	req := &chatRequest{Model: defaultModel, Messages: make([]chatMessage, len(messages))}
	for i := range messages {
		req.Messages[i] = convertMessage(&messages[i])
	}
	if opts == nil {
		return req
	}

	if opts.ModelID != "" {
		req.Model = opts.ModelID
	}
	req.Temperature, req.TopP, req.MaxTokens = opts.Temperature, opts.TopP, opts.MaxTokens
	req.Stop, req.Seed, req.User = opts.Stop, opts.Seed, opts.User
	req.Tools = toolSpecs(opts.Tools)
	// The API rejects tool_choice without tools.
	if len(req.Tools) > 0 {
		req.ToolChoice = string(opts.ToolChoice)
	}
	return req
}

func toolSpecs(tools []af.Tool) []toolSpec {
	if len(tools) == 0 {
		return nil
	}
	specs := make([]toolSpec, len(tools))
	for i, t := range tools {
		specs[i] = toolSpec{
			Type:     "function",
			Function: functionSpec{Name: t.Name(), Description: t.Description(), Parameters: t.Parameters()},
		}
	}
	return specs
}

func convertMessage(msg *af.Message) chatMessage {
	cm := chatMessage{Role: string(msg.Role)}
	switch msg.Role {
	case af.RoleTool:
		// One result per tool message; the last one wins if there are more.
		for _, c := range msg.Contents {
			if fr, ok := c.(*af.FunctionResultContent); ok {
				result := fr.Result
				cm.ToolCallID, cm.Content = fr.CallID, &result
			}
		}
	case af.RoleAssistant:
		cm.Name = msg.AuthorName
		for _, fc := range msg.FunctionCalls() {
			cm.ToolCalls = append(cm.ToolCalls, toolCall{
				ID:       fc.CallID,
				Type:     "function",
				Function: functionCall{Name: fc.Name, Arguments: fc.Arguments},
			})
		}
		if text := msg.Text(); text != "" || len(cm.ToolCalls) == 0 {
			cm.Content = &text
		}
	default:
		text := msg.Text()
		cm.Content = &text
	}
	return cm
}
