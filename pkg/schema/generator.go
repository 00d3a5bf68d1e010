package schema

import (
	"math/rand/v2"
	"sort"
)

// DefaultMaxDepth bounds recursion when generating nested structures.
// Branches past the limit degrade to nil rather than recursing further.
const DefaultMaxDepth = 10

// Generator walks a Node tree and produces synthetic data.
type Generator struct {
	data     DataGenerator
	rng      *rand.Rand
	maxDepth int
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithMaxDepth overrides the recursion limit.
func WithMaxDepth(depth int) GeneratorOption {
	return func(g *Generator) {
		if depth > 0 {
			g.maxDepth = depth
		}
	}
}

// WithRand seeds array sizing decisions for reproducible output.
func WithRand(rng *rand.Rand) GeneratorOption {
	return func(g *Generator) { g.rng = rng }
}

// NewGenerator builds a Generator around the given primitive source.
// A nil data generator falls back to the default faker.
func NewGenerator(data DataGenerator, opts ...GeneratorOption) *Generator {
	if data == nil {
		data = NewFaker(nil)
	}
	g := &Generator{data: data, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces a value matching the node's shape. A nil node yields nil.
func (g *Generator) Generate(node *Node) any {
	return g.generate(node, 0)
}

func (g *Generator) generate(node *Node, depth int) any {
	if node == nil || depth > g.maxDepth {
		return nil
	}
	if node.Example != nil {
		return node.Example
	}
	if len(node.Examples) > 0 {
		return node.Examples[0]
	}
	if len(node.Enum) > 0 {
		return node.Enum[0]
	}

	switch node.Type {
	case "object":
		// Properties generate in sorted key order so seeded output is
		// reproducible regardless of map iteration order.
		names := make([]string, 0, len(node.Properties))
		for name := range node.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make(map[string]any, len(names))
		for _, name := range names {
			out[name] = g.generate(node.Properties[name], depth+1)
		}
		return out
	case "array":
		n := g.arrayLen(node)
		out := make([]any, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, g.generate(node.Items, depth+1))
		}
		return out
	case "string", "number", "integer", "boolean":
		return g.data.Primitive(node.Type, node.Format, Constraints{
			Minimum:    node.Minimum,
			Maximum:    node.Maximum,
			MultipleOf: node.MultipleOf,
			MinLength:  node.MinLength,
			MaxLength:  node.MaxLength,
		})
	case "null":
		return nil
	default:
		// Untyped nodes with properties behave as objects.
		if len(node.Properties) > 0 {
			obj := *node
			obj.Type = "object"
			return g.generate(&obj, depth)
		}
		return nil
	}
}

func (g *Generator) arrayLen(node *Node) int {
	min, max := 1, 5
	if node.MinItems != nil && *node.MinItems >= 0 {
		min = *node.MinItems
	}
	if node.MaxItems != nil && *node.MaxItems >= min {
		max = *node.MaxItems
	}
	if max <= min {
		return min
	}
	return min + g.intN(max-min+1)
}

func (g *Generator) intN(n int) int {
	if g.rng != nil {
		return g.rng.IntN(n)
	}
	return rand.IntN(n)
}
