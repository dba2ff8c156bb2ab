// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// Parameter is the flattened view of one property of a tool's JSON Schema.
type Parameter struct {
	Type        string
	Description string
	Required    bool
}

// DescribeParameters flattens a tool's object schema into a map from
// parameter name to its type and whether it is required.
func DescribeParameters(schema json.RawMessage) (map[string]Parameter, error) {
	out := map[string]Parameter{}
	if len(schema) == 0 {
		return out, nil
	}
	var s struct {
		Properties map[string]Parameter `json:"properties"`
		Required   []string             `json:"required"`
	}
	if err := json.Unmarshal(schema, &s); err != nil {
		return nil, fmt.Errorf("decode parameter schema: %w", err)
	}
	for name, p := range s.Properties {
		p.Required = slices.Contains(s.Required, name)
		out[name] = p
	}
	return out, nil
}

// ParameterNames returns the keys of params in sorted order.
func ParameterNames(params map[string]Parameter) []string {
	names := make([]string, 0, len(params))
	for n := range params {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// jsonSchema is the subset of JSON Schema that tool parameters use.
type jsonSchema struct {
	Type                 string      `json:"type"`
	Description          string      `json:"description,omitempty"`
	Enum                 []string    `json:"enum,omitempty"`
	Items                *jsonSchema `json:"items,omitempty"`
	Properties           *properties `json:"properties,omitempty"`
	AdditionalProperties *jsonSchema `json:"additionalProperties,omitempty"`
	Required             []string    `json:"required,omitempty"`
}

type property struct {
	name   string
	schema *jsonSchema
}

// properties encodes as a JSON object whose keys keep struct field order.
type properties []property

func (ps properties) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, p := range ps {
		if i > 0 {
			b.WriteByte(',')
		}
		key, _ := json.Marshal(p.name)
		val, err := json.Marshal(p.schema)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func generateSchemaFromType(t reflect.Type) json.RawMessage {
	b, _ := json.Marshal(schemaForType(t))
	return b
}

func schemaForType(t reflect.Type) *jsonSchema {
	switch t.Kind() {
	case reflect.Pointer:
		return schemaForType(t.Elem())
	case reflect.Bool:
		return &jsonSchema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &jsonSchema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &jsonSchema{Type: "number"}
	case reflect.Slice, reflect.Array:
		return &jsonSchema{Type: "array", Items: schemaForType(t.Elem())}
	case reflect.Map:
		s := &jsonSchema{Type: "object"}
		if t.Key().Kind() == reflect.String {
			s.AdditionalProperties = schemaForType(t.Elem())
		}
		return s
	case reflect.Struct:
		return schemaForStruct(t)
	}
	return &jsonSchema{Type: "string"}
}

// schemaForStruct maps exported fields to properties. Field names follow
// the json tag; the jsonschema tag accepts description=, enum=a|b and
// required.
func schemaForStruct(t reflect.Type) *jsonSchema {
	s := &jsonSchema{Type: "object", Properties: &properties{}}
	for field := range fieldsOf(t) {
		name, skip := jsonName(field)
		if skip {
			continue
		}
		prop := schemaForType(field.Type)
		for _, opt := range strings.Split(field.Tag.Get("jsonschema"), ",") {
			key, val, _ := strings.Cut(opt, "=")
			switch strings.TrimSpace(key) {
			case "description":
				prop.Description = strings.TrimSpace(val)
			case "enum":
				for _, v := range strings.Split(val, "|") {
					prop.Enum = append(prop.Enum, strings.TrimSpace(v))
				}
			case "required":
				s.Required = append(s.Required, name)
			}
		}
		*s.Properties = append(*s.Properties, property{name: name, schema: prop})
	}
	return s
}

func fieldsOf(t reflect.Type) func(yield func(reflect.StructField) bool) {
	return func(yield func(reflect.StructField) bool) {
		for i := range t.NumField() {
			if f := t.Field(i); f.IsExported() && !yield(f) {
				return
			}
		}
	}
}

func jsonName(f reflect.StructField) (name string, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	if n, _, _ := strings.Cut(tag, ","); n != "" {
		return n, false
	}
	return f.Name, false
}
