// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"encoding/json"
	"fmt"
)

// contentEnvelope is the persisted form of every [Content] kind. The $type
// discriminator selects which of the other fields are meaningful.
type contentEnvelope struct {
	Type      ContentType     `json:"$type"`
	Text      string          `json:"text,omitempty"`
	CallID    string          `json:"callId,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    *string         `json:"result,omitempty"`
	Usage     *UsageDetails   `json:"usage,omitempty"`
}

// MarshalContentJSON encodes c as a JSON object tagged with its $type.
func MarshalContentJSON(c Content) ([]byte, error) {
	env := contentEnvelope{}
	switch v := c.(type) {
	case *TextContent:
		env.Type, env.Text = ContentTypeText, v.Text
	case *FunctionCallContent:
		env.Type, env.CallID, env.Name = ContentTypeFunctionCall, v.CallID, v.Name
		env.Arguments = encodeArguments(v.Arguments)
	case *FunctionResultContent:
		result := v.Result
		env.Type, env.CallID, env.Name, env.Result = ContentTypeFunctionResult, v.CallID, v.Name, &result
	case *UsageContent:
		usage := v.Usage
		env.Type, env.Usage = ContentTypeUsage, &usage
	default:
		return nil, fmt.Errorf("unknown content type: %T", c)
	}
	return json.Marshal(env)
}

// encodeArguments embeds valid JSON arguments as is. Anything else is stored
// as a JSON string so a transcript never loses what the model sent.
func encodeArguments(args string) json.RawMessage {
	if args == "" {
		return nil
	}
	if json.Valid([]byte(args)) {
		return json.RawMessage(args)
	}
	quoted, _ := json.Marshal(args)
	return quoted
}

func decodeArguments(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

// UnmarshalContentJSON decodes a value written by [MarshalContentJSON].
func UnmarshalContentJSON(data []byte) (Content, error) {
	var env contentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal content envelope: %w", err)
	}
	switch env.Type {
	case ContentTypeText:
		return &TextContent{Text: env.Text}, nil
	case ContentTypeFunctionCall:
		return &FunctionCallContent{CallID: env.CallID, Name: env.Name, Arguments: decodeArguments(env.Arguments)}, nil
	case ContentTypeFunctionResult:
		fr := &FunctionResultContent{CallID: env.CallID, Name: env.Name}
		if env.Result != nil {
			fr.Result = *env.Result
		}
		return fr, nil
	case ContentTypeUsage:
		uc := &UsageContent{}
		if env.Usage != nil {
			uc.Usage = *env.Usage
		}
		return uc, nil
	}
	return nil, fmt.Errorf("unknown content $type: %q", env.Type)
}

// Contents is a list of [Content] values that encodes as a JSON array of
// tagged objects.
type Contents []Content

func (cs Contents) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, 0, len(cs))
	for i, c := range cs {
		b, err := MarshalContentJSON(c)
		if err != nil {
			return nil, fmt.Errorf("content[%d]: %w", i, err)
		}
		items = append(items, b)
	}
	return json.Marshal(items)
}

func (cs *Contents) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(Contents, 0, len(items))
	for i, item := range items {
		c, err := UnmarshalContentJSON(item)
		if err != nil {
			return fmt.Errorf("content[%d]: %w", i, err)
		}
		out = append(out, c)
	}
	*cs = out
	return nil
}
