package jsonschema

// Schema is a minimal JSON Schema representation used for export.
type Schema struct {
	// Core
	Schema      string `json:"$schema,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Type        any    `json:"type,omitempty"` // string or []string
	Format      string `json:"format,omitempty"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	Const       any    `json:"const,omitempty"`

	// Number
	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`

	// String
	MinLength *int `json:"minLength,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	PatternProperties    map[string]*Schema `json:"patternProperties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`

	// Array
	Items    *Schema `json:"items,omitempty"`
	MinItems *int    `json:"minItems,omitempty"`
	MaxItems *int    `json:"maxItems,omitempty"`

	// Union
	OneOf []*Schema `json:"oneOf,omitempty"`
}

// Draft is the dialect URI written by exporters.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Ptr returns a pointer to v, for the optional numeric keywords.
func Ptr[T any](v T) *T { return &v }

// Object returns an object schema with the given properties, all of them
// listed in required order.
func Object(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: "object", Properties: props, Required: required}
}

// Enum returns a string enumeration.
func Enum(values ...string) *Schema {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return &Schema{Type: "string", Enum: out}
}

// Const returns a string literal schema.
func Const(v string) *Schema { return &Schema{Type: "string", Const: v} }
