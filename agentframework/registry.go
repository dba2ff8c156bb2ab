// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"fmt"
	"strings"
)

// Registry maps tool names to tools. It is built once at startup and handed
// to the [Agent] with [WithRegistry]; it is read-only afterwards.
type Registry struct {
	tools  []Tool
	byName map[string]Tool
}

// NewRegistry builds a Registry from tools, preserving their order.
// Empty or duplicate names are rejected.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if t == nil || t.Name() == "" {
			return nil, fmt.Errorf("%w: tool with empty name", ErrInitialization)
		}
		if _, dup := r.byName[t.Name()]; dup {
			return nil, fmt.Errorf("%w: duplicate tool %q", ErrInitialization, t.Name())
		}
		r.byName[t.Name()] = t
		r.tools = append(r.tools, t)
	}
	return r, nil
}

// MustRegistry is like [NewRegistry] but panics on error.
func MustRegistry(tools ...Tool) *Registry {
	r, err := NewRegistry(tools...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.byName[name]
	return t, ok
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	if r == nil {
		return nil
	}
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name()
	}
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.tools)
}

func (r *Registry) unknownToolText(name string) string {
	if r.Len() == 0 {
		return fmt.Sprintf("Unknown function %q. No functions are available.", name)
	}
	return fmt.Sprintf("Unknown function %q. Available functions are: %s.", name, strings.Join(r.Names(), ", "))
}
