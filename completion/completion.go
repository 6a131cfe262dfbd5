// ABOUTME: Text completion capability used for AI-drafted outreach copy
// ABOUTME: Defines the Completer interface and strict JSON response schemas
package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harperreed/introengine/apperr"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Completer returns structured JSON for a system and user prompt. The result
// has already been validated against schema. Failures are ServiceErrors.
type Completer interface {
	Complete(ctx context.Context, system, user string, schema *Schema) (map[string]any, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, system, user string, schema *Schema) (map[string]any, error)

func (f CompleterFunc) Complete(ctx context.Context, system, user string, schema *Schema) (map[string]any, error) {
	return f(ctx, system, user, schema)
}

// Schema is a named, compiled JSON schema for a response.
type Schema struct {
	Name     string
	raw      map[string]any
	compiled *jsonschema.Schema
}

// NewSchema compiles a draft 2020-12 schema.
func NewSchema(name, raw string) (*Schema, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("schema %s is not valid JSON: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://introengine.local/schemas/%s.schema.json", name)
	if err := c.AddResource(url, strings.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to load schema %s: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}
	return &Schema{Name: name, raw: doc, compiled: compiled}, nil
}

// MustSchema is NewSchema for package-level schema literals.
func MustSchema(name, raw string) *Schema {
	s, err := NewSchema(name, raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Document returns the schema as a JSON object for request bodies.
func (s *Schema) Document() map[string]any {
	return s.raw
}

// Parse decodes a JSON text and validates it against the schema.
func (s *Schema) Parse(text string) (map[string]any, error) {
	var v any
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&v); err != nil {
		return nil, apperr.Service("parse_completion", fmt.Errorf("malformed JSON: %w", err))
	}
	if err := s.compiled.Validate(v); err != nil {
		return nil, apperr.Service("parse_completion", fmt.Errorf("response does not match %s: %w", s.Name, err))
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, apperr.Service("parse_completion", fmt.Errorf("response for %s is not an object", s.Name))
	}
	return obj, nil
}

// String returns a trimmed string field, or "" when absent.
func String(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return strings.TrimSpace(s)
}
