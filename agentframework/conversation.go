// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"encoding/json"
	"sync"
)

// Conversation is an ordered, append-only log of turns. Insertion order is
// chronological order. Turns are copied on the way in and on the way out, so
// nothing outside the log can change a turn once it has been appended.
type Conversation struct {
	mu    sync.RWMutex
	turns []Message
}

// NewConversation creates an empty [Conversation].
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds turns to the end of the log in the order given.
func (c *Conversation) Append(turns ...Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range turns {
		c.turns = append(c.turns, cloneMessage(t))
	}
}

// Turns returns a copy of every turn in order.
func (c *Conversation) Turns() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.turns))
	for i, t := range c.turns {
		out[i] = cloneMessage(t)
	}
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// MarshalJSON renders the transcript as a JSON array of messages.
func (c *Conversation) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Turns())
}

func cloneMessage(m Message) Message {
	out := m
	if m.Contents != nil {
		out.Contents = make(Contents, len(m.Contents))
		for i, c := range m.Contents {
			out.Contents[i] = cloneContent(c)
		}
	}
	return out
}

func cloneContent(c Content) Content {
	switch v := c.(type) {
	case *TextContent:
		cp := *v
		return &cp
	case *FunctionCallContent:
		cp := *v
		return &cp
	case *FunctionResultContent:
		cp := *v
		return &cp
	case *UsageContent:
		cp := *v
		return &cp
	default:
		return c
	}
}
