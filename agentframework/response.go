// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"encoding/json"
	"strings"
)

// ChatResponse is the merged result of one streaming pass from a [ChatClient].
type ChatResponse struct {
	Messages     []Message
	ResponseID   string
	ModelID      string
	FinishReason FinishReason
	Usage        UsageDetails
}

// Text returns the concatenated text of all messages in this response.
func (r *ChatResponse) Text() string {
	var b strings.Builder
	for i := range r.Messages {
		b.WriteString(r.Messages[i].Text())
	}
	return b.String()
}

// FunctionCalls returns every tool call in the response, in emission order.
func (r *ChatResponse) FunctionCalls() []*FunctionCallContent {
	var calls []*FunctionCallContent
	for i := range r.Messages {
		calls = append(calls, r.Messages[i].FunctionCalls()...)
	}
	return calls
}

// ChatResponseUpdate is a single chunk received during streaming from a [ChatClient].
type ChatResponseUpdate struct {
	Contents     Contents
	Role         Role
	ResponseID   string
	ModelID      string
	FinishReason FinishReason
	Usage        UsageDetails
	Raw          any
}

// Text returns the concatenated text of all [TextContent] items in this update.
func (u *ChatResponseUpdate) Text() string {
	var b strings.Builder
	for _, c := range u.Contents {
		if tc, ok := c.(*TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// ChatResponseFromUpdates builds a complete [ChatResponse] by merging
// a sequence of streaming updates.
func ChatResponseFromUpdates(updates []ChatResponseUpdate) *ChatResponse {
	resp := &ChatResponse{}
	var allContents Contents
	for _, u := range updates {
		allContents = append(allContents, u.Contents...)
		if u.ResponseID != "" {
			resp.ResponseID = u.ResponseID
		}
		if u.ModelID != "" {
			resp.ModelID = u.ModelID
		}
		if u.FinishReason != "" {
			resp.FinishReason = u.FinishReason
		}
		if u.Usage.TotalTokens > 0 {
			resp.Usage = u.Usage
		}
	}

	merged := mergeContentDeltas(allContents)
	if len(merged) > 0 {
		role := RoleAssistant
		if len(updates) > 0 && updates[0].Role != "" {
			role = updates[0].Role
		}
		resp.Messages = []Message{{Role: role, Contents: merged}}
	}
	return resp
}

// mergeContentDeltas consolidates all text deltas into a single TextContent
// and folds function call fragments sharing an Index into one call. Calls
// keep the position of their first fragment.
func mergeContentDeltas(cs Contents) Contents {
	if len(cs) == 0 {
		return nil
	}
	var text strings.Builder
	var calls []*FunctionCallContent
	byIndex := make(map[int]*FunctionCallContent)
	for _, c := range cs {
		switch v := c.(type) {
		case *TextContent:
			text.WriteString(v.Text)
		case *FunctionCallContent:
			fc, ok := byIndex[v.Index]
			if !ok || (v.CallID != "" && fc.CallID != "" && v.CallID != fc.CallID) {
				fc = &FunctionCallContent{Index: v.Index}
				byIndex[v.Index] = fc
				calls = append(calls, fc)
			}
			if v.CallID != "" {
				fc.CallID = v.CallID
			}
			if v.Name != "" {
				fc.Name = v.Name
			}
			fc.Arguments += v.Arguments
		}
	}

	var merged Contents
	if text.Len() > 0 {
		merged = append(merged, &TextContent{Text: text.String()})
	}
	for _, fc := range calls {
		merged = append(merged, fc)
	}
	return merged
}

// ToolCall is a model-issued request to run a named tool.
type ToolCall struct {
	ID   string
	Name string

	// Arguments is the decoded argument object. It is nil when RawArguments
	// could not be decoded.
	Arguments map[string]any

	// RawArguments is the JSON text exactly as the model produced it.
	RawArguments string
}

// ToolResult is the textual outcome of executing a [ToolCall].
type ToolResult struct {
	CallID string
	Name   string
	Value  string
}

// ToolTraceEntry pairs a tool call with its result.
type ToolTraceEntry struct {
	Call   ToolCall
	Result ToolResult
}

// FinalAnswer is what [Session.Submit] returns for one user query.
type FinalAnswer struct {
	Text      string
	ToolTrace []ToolTraceEntry

	// Sources lists the IDs of the documents the context provider supplied.
	Sources []string

	// Usage is summed over every model pass. It is also recorded on the
	// committed assistant turn as a [UsageContent].
	Usage UsageDetails
}

// Answered reports whether the model produced any answer text.
func (a *FinalAnswer) Answered() bool { return a != nil && a.Text != "" }

// toolCallFromContent decodes a streamed call. A decoding failure is
// reported but the call is still returned so it can be answered.
func toolCallFromContent(fc *FunctionCallContent) (ToolCall, error) {
	call := ToolCall{ID: fc.CallID, Name: fc.Name, RawArguments: fc.Arguments}
	raw := strings.TrimSpace(fc.Arguments)
	if raw == "" {
		call.Arguments = map[string]any{}
		return call, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return call, err
	}
	if args == nil {
		args = map[string]any{}
	}
	call.Arguments = args
	return call, nil
}
