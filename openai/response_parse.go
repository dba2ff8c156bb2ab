// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	af "github.com/contoso/travelagent/agentframework"
)

// chatCompletionChunk is the payload of one "data:" event.
type chatCompletionChunk struct {
	ID      string        `json:"id"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
	// Usage arrives on a final chunk with no choices when
	// stream_options.include_usage is set.
	Usage *usage `json:"usage,omitempty"`
	// Error is set when the service fails after the stream has started.
	Error *chunkError `json:"error,omitempty"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chunkError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type chunkChoice struct {
	Index        int        `json:"index"`
	Delta        chunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

type chunkDelta struct {
	Role      string          `json:"role,omitempty"`
	Content   *string         `json:"content,omitempty"`
	ToolCalls []chunkToolCall `json:"tool_calls,omitempty"`
}

// chunkToolCall is a fragment of a streamed tool call. The first fragment
// of a call has its ID and name; later ones share its Index and carry a
// slice of the arguments.
type chunkToolCall struct {
	Index    int          `json:"index"`
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function functionCall `json:"function"`
}

// parseChunk converts a chunk into an update. Only the first choice is read
// since requests never ask for n > 1.
func parseChunk(chunk *chatCompletionChunk) *af.ChatResponseUpdate {
	update := &af.ChatResponseUpdate{ResponseID: chunk.ID, ModelID: chunk.Model}
	if u := chunk.Usage; u != nil {
		update.Usage = af.UsageDetails{
			InputTokens:  u.PromptTokens,
			OutputTokens: u.CompletionTokens,
			TotalTokens:  u.TotalTokens,
		}
	}
	if len(chunk.Choices) == 0 {
		return update
	}

	choice := chunk.Choices[0]
	update.Role = af.Role(choice.Delta.Role)
	if choice.FinishReason != nil {
		update.FinishReason = finishReason(*choice.FinishReason)
	}
	if text := choice.Delta.Content; text != nil && *text != "" {
		update.Contents = append(update.Contents, &af.TextContent{Text: *text})
	}
	for _, tc := range choice.Delta.ToolCalls {
		update.Contents = append(update.Contents, &af.FunctionCallContent{
			Index:     tc.Index,
			CallID:    tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return update
}

var finishReasons = map[string]af.FinishReason{
	"stop":           af.FinishReasonStop,
	"length":         af.FinishReasonLength,
	"tool_calls":     af.FinishReasonToolCalls,
	"content_filter": af.FinishReasonContentFilter,
}

func finishReason(s string) af.FinishReason {
	if r, ok := finishReasons[s]; ok {
		return r
	}
	return af.FinishReason(s)
}
