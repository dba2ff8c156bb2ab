// Copyright (c) Microsoft. All rights reserved.

// Package openaisdk provides a streaming [agentframework.ChatClient] built on
// the official github.com/openai/openai-go SDK. It is interchangeable with
// the net/http client in package openai.
//
//	client := openaisdk.New("gpt-4o-mini",
//	    option.WithAPIKey(os.Getenv("GITHUB_TOKEN")),
//	    option.WithBaseURL("https://models.inference.ai.azure.com"),
//	)
package openaisdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	af "github.com/contoso/travelagent/agentframework"
)

// Client implements [agentframework.ChatClient] over the OpenAI SDK.
type Client struct {
	client *openai.Client
	model  string
}

var _ af.ChatClient = (*Client)(nil)

// New creates a Client for model. Request options configure the key, base
// URL, headers and HTTP client. SDK retries are disabled so that a failed
// pass is reported once.
func New(model string, opts ...option.RequestOption) *Client {
	options := append([]option.RequestOption{option.WithMaxRetries(0)}, opts...)
	c := openai.NewClient(options...)
	return &Client{client: &c, model: model}
}

// StreamResponse starts a streaming chat completion and adapts its chunks
// into [agentframework.ChatResponseUpdate] values.
func (c *Client) StreamResponse(ctx context.Context, messages []af.Message, opts *af.ChatOptions) (*af.ResponseStream[af.ChatResponseUpdate], error) {
	params, err := c.buildParams(messages, opts)
	if err != nil {
		return nil, err
	}

	return af.NewResponseStream(ctx, func(ctx context.Context, ch chan<- af.ChatResponseUpdate) error {
		stream := c.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		finished := false
		for stream.Next() {
			chunk := stream.Current()
			update := convertChunk(chunk)
			if update.FinishReason != "" {
				finished = true
			}
			select {
			case ch <- update:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := stream.Err(); err != nil {
			return mapError(err)
		}
		if !finished {
			return fmt.Errorf("%w: stream ended without a finish reason", af.ErrModelStreamMalformed)
		}
		return nil
	}), nil
}

func (c *Client) buildParams(messages []af.Message, opts *af.ChatOptions) (openai.ChatCompletionNewParams, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: convertMessages(messages),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	if opts == nil {
		return params, nil
	}

	if opts.ModelID != "" {
		params.Model = openai.ChatModel(opts.ModelID)
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(*opts.Temperature)
	}
	if opts.TopP != nil {
		params.TopP = openai.Float(*opts.TopP)
	}
	if opts.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*opts.MaxTokens))
	}
	if opts.Seed != nil {
		params.Seed = openai.Int(int64(*opts.Seed))
	}
	if len(opts.Stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: opts.Stop}
	}
	if opts.User != "" {
		params.User = openai.String(opts.User)
	}

	for _, t := range opts.Tools {
		schema := openai.FunctionParameters{"type": "object", "properties": map[string]any{}}
		if raw := t.Parameters(); len(raw) > 0 {
			if err := json.Unmarshal(raw, &schema); err != nil {
				return params, fmt.Errorf("%w: tool %q schema: %v", af.ErrInvalidRequest, t.Name(), err)
			}
		}
		params.Tools = append(params.Tools, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name(),
			Description: openai.String(t.Description()),
			Parameters:  schema,
		}))
	}
	if len(params.Tools) > 0 && opts.ToolChoice != "" {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(string(opts.ToolChoice)),
		}
	}
	return params, nil
}

// convertMessages translates framework Messages into SDK message params.
func convertMessages(messages []af.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case af.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Text()))
		case af.RoleTool:
			for _, c := range msg.Contents {
				if fr, ok := c.(*af.FunctionResultContent); ok {
					out = append(out, openai.ToolMessage(fr.Result, fr.CallID))
				}
			}
		case af.RoleAssistant:
			var assistant openai.ChatCompletionAssistantMessageParam
			if text := msg.Text(); text != "" {
				assistant.Content.OfString = openai.String(text)
			}
			for _, fc := range msg.FunctionCalls() {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: fc.CallID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      fc.Name,
							Arguments: fc.Arguments,
						},
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		default:
			out = append(out, openai.UserMessage(msg.Text()))
		}
	}
	return out
}

// convertChunk maps one SDK chunk to a framework update.
func convertChunk(chunk openai.ChatCompletionChunk) af.ChatResponseUpdate {
	update := af.ChatResponseUpdate{
		ResponseID: chunk.ID,
		ModelID:    chunk.Model,
		Raw:        chunk,
	}
	if chunk.Usage.TotalTokens > 0 {
		update.Usage = af.UsageDetails{
			InputTokens:  int(chunk.Usage.PromptTokens),
			OutputTokens: int(chunk.Usage.CompletionTokens),
			TotalTokens:  int(chunk.Usage.TotalTokens),
		}
	}
	if len(chunk.Choices) == 0 {
		return update
	}

	choice := chunk.Choices[0]
	if choice.Delta.Role != "" {
		update.Role = af.Role(choice.Delta.Role)
	}
	if choice.FinishReason != "" {
		update.FinishReason = af.FinishReason(choice.FinishReason)
	}
	if choice.Delta.Content != "" {
		update.Contents = append(update.Contents, &af.TextContent{Text: choice.Delta.Content})
	}
	for _, tc := range choice.Delta.ToolCalls {
		update.Contents = append(update.Contents, &af.FunctionCallContent{
			Index:     int(tc.Index),
			CallID:    tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return update
}

// mapError converts SDK API errors into framework service errors.
func mapError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", af.ErrChatClient, err)
	}
	svcErr := &af.ServiceError{
		StatusCode: apiErr.StatusCode,
		Message:    apiErr.Message,
		Code:       apiErr.Code,
	}
	switch {
	case apiErr.Code == "content_filter":
		svcErr.Err = af.ErrContentFilter
	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		svcErr.Err = af.ErrAuth
	case apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusNotFound:
		svcErr.Err = af.ErrInvalidRequest
	default:
		svcErr.Err = af.ErrService
	}
	return svcErr
}
