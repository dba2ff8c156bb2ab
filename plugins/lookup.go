// Copyright (c) Microsoft. All rights reserved.

// Package plugins holds the tools the travel agent exposes to the model and
// the Contoso seed documents.
package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	af "github.com/contoso/travelagent/agentframework"
)

// Entry is one row of a [Lookup] table.
type Entry struct {
	Key   string
	Value string
}

// LookupConfig describes a [Lookup] tool.
type LookupConfig struct {
	Name        string
	Description string

	// Param is the name of the single string argument holding the key.
	Param            string
	ParamDescription string

	Entries []Entry

	// Found renders a hit. Defaults to the entry value.
	Found func(e Entry) string

	// Missing renders a miss for input, listing keys in declaration order.
	Missing func(input string, keys []string) string
}

// Lookup is a tool backed by a static, case-insensitive table. Its result is
// always text: bad input and unknown keys produce a descriptive string
// rather than an error.
type Lookup struct {
	cfg    LookupConfig
	index  map[string]Entry
	keys   []string
	schema json.RawMessage
}

var _ af.Tool = (*Lookup)(nil)

// NewLookup builds a Lookup from cfg.
func NewLookup(cfg LookupConfig) *Lookup {
	l := &Lookup{cfg: cfg, index: make(map[string]Entry, len(cfg.Entries))}
	for _, e := range cfg.Entries {
		l.index[normalize(e.Key)] = e
		l.keys = append(l.keys, e.Key)
	}
	if l.cfg.Found == nil {
		l.cfg.Found = func(e Entry) string { return e.Value }
	}
	if l.cfg.Missing == nil {
		l.cfg.Missing = func(input string, keys []string) string {
			return fmt.Sprintf("No entry for %q. Valid values are: %s.", input, strings.Join(keys, ", "))
		}
	}
	l.schema, _ = json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			cfg.Param: map[string]any{"type": "string", "description": cfg.ParamDescription},
		},
		"required": []string{cfg.Param},
	})
	return l
}

func (l *Lookup) Name() string                { return l.cfg.Name }
func (l *Lookup) Description() string         { return l.cfg.Description }
func (l *Lookup) Parameters() json.RawMessage { return l.schema }

// Keys returns the table keys in declaration order.
func (l *Lookup) Keys() []string {
	return append([]string(nil), l.keys...)
}

// Get looks key up directly, ignoring case and surrounding space.
func (l *Lookup) Get(key string) string {
	if e, ok := l.index[normalize(key)]; ok {
		return l.cfg.Found(e)
	}
	return l.cfg.Missing(strings.TrimSpace(key), l.Keys())
}

// Invoke implements [agentframework.Tool]. It never returns an error.
func (l *Lookup) Invoke(ctx context.Context, raw json.RawMessage) (string, error) {
	var args map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return fmt.Sprintf("Invalid arguments for %s: expected an object with a %q string. Valid values are: %s.",
				l.cfg.Name, l.cfg.Param, strings.Join(l.keys, ", ")), nil
		}
	}
	v, ok := args[l.cfg.Param]
	if !ok || v == nil {
		return fmt.Sprintf("Missing required argument %q. Valid values are: %s.", l.cfg.Param, strings.Join(l.keys, ", ")), nil
	}
	key, ok := v.(string)
	if !ok {
		return fmt.Sprintf("Argument %q must be a string. Valid values are: %s.", l.cfg.Param, strings.Join(l.keys, ", ")), nil
	}
	return l.Get(key), nil
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
