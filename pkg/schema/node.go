// Package schema generates synthetic response data from type/shape
// descriptors. Primitive values come from a pluggable DataGenerator; the
// default implementation is a seedable faker.
package schema

// Node is a JSON-Schema-like shape descriptor driving synthetic generation.
type Node struct {
	// Type is the value kind: string, number, integer, boolean, array, object.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// Format refines string generation: email, uri, date, date-time, uuid, password.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// Example short-circuits generation when set.
	Example any `json:"example,omitempty" yaml:"example,omitempty"`

	// Examples short-circuits generation with its first element when non-empty.
	Examples []any `json:"examples,omitempty" yaml:"examples,omitempty"`

	// Enum restricts generation to one of the listed values.
	Enum []any `json:"enum,omitempty" yaml:"enum,omitempty"`

	// Properties describes object members.
	Properties map[string]*Node `json:"properties,omitempty" yaml:"properties,omitempty"`

	// Items describes array elements.
	Items *Node `json:"items,omitempty" yaml:"items,omitempty"`

	// Numeric constraints.
	Minimum    *float64 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum    *float64 `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	MultipleOf *float64 `json:"multipleOf,omitempty" yaml:"multipleOf,omitempty"`

	// String constraints.
	MinLength *int `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`

	// Array constraints.
	MinItems *int `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems *int `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`
}

// Constraints carries the numeric and length bounds handed to a DataGenerator.
type Constraints struct {
	Minimum    *float64
	Maximum    *float64
	MultipleOf *float64
	MinLength  *int
	MaxLength  *int
}

// DataGenerator is the primitive value collaborator. Implementations produce
// a single value of the requested type/format honoring the constraints.
type DataGenerator interface {
	Primitive(typ, format string, c Constraints) any
}
