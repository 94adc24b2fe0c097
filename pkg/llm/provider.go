package llm

import (
	"context"
	"errors"
)

// Schema describes the JSON object a provider must return. It is a small,
// provider-neutral subset of JSON Schema that every backend can express.
type Schema struct {
	Type        string // "object", "array", "string", "integer", "number", "boolean"
	Description string
	Properties  map[string]*Schema
	Required    []string
	Items       *Schema
}

// ToJSONSchema renders the schema as a plain JSON Schema document.
func (s *Schema) ToJSONSchema() map[string]interface{} {
	if s == nil {
		return nil
	}
	out := map[string]interface{}{"type": s.Type}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := make(map[string]interface{}, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.ToJSONSchema()
		}
		out["properties"] = props
		out["additionalProperties"] = false
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	if s.Items != nil {
		out["items"] = s.Items.ToJSONSchema()
	}
	return out
}

// Request is one structured completion.
type Request struct {
	System      string
	User        string
	Schema      *Schema
	SchemaName  string
	Model       string // overrides the provider default when set
	Temperature float32
}

type Response struct {
	Content          string // raw JSON matching Request.Schema
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// ErrEmptyResponse is returned when the provider answered without content.
var ErrEmptyResponse = errors.New("llm: empty response")

// Provider is implemented by every AI backend.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
