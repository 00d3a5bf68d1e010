package schema

import (
	"math/rand/v2"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededGenerator(seed uint64) *Generator {
	rng := rand.New(rand.NewPCG(seed, 0))
	return NewGenerator(NewFaker(rng), WithRand(rng))
}

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func TestGenerateExampleShortCircuit(t *testing.T) {
	g := NewGenerator(nil)

	node := &Node{Type: "string", Example: "fixed"}
	assert.Equal(t, "fixed", g.Generate(node))

	node = &Node{Type: "integer", Examples: []any{42, 43}}
	assert.Equal(t, 42, g.Generate(node))

	node = &Node{Type: "string", Enum: []any{"red", "green"}}
	assert.Equal(t, "red", g.Generate(node))
}

func TestGenerateStringFormats(t *testing.T) {
	g := seededGenerator(1)

	tests := []struct {
		format  string
		pattern string
	}{
		{"email", `^[a-z]+\d+@[a-z.]+$`},
		{"uuid", `^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`},
		{"uri", `^https://`},
		{"date", `^\d{4}-\d{2}-\d{2}$`},
		{"password", `^pass-\d+$`},
		{"", `^[a-z]+-[a-z]+$`},
	}

	for _, tt := range tests {
		t.Run("format_"+tt.format, func(t *testing.T) {
			v := g.Generate(&Node{Type: "string", Format: tt.format})
			s, ok := v.(string)
			require.True(t, ok, "expected string, got %T", v)
			assert.Regexp(t, regexp.MustCompile(tt.pattern), s)
		})
	}
}

func TestGenerateDateTimeParses(t *testing.T) {
	g := seededGenerator(1)
	v := g.Generate(&Node{Type: "string", Format: "date-time"})
	s, ok := v.(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339, s)
	assert.NoError(t, err)
}

func TestGenerateNumberBounds(t *testing.T) {
	g := seededGenerator(7)
	node := &Node{Type: "number", Minimum: floatPtr(10), Maximum: floatPtr(20)}

	for i := 0; i < 50; i++ {
		v := g.Generate(node)
		f, ok := v.(float64)
		require.True(t, ok)
		assert.GreaterOrEqual(t, f, 10.0)
		assert.LessOrEqual(t, f, 20.0)
	}
}

func TestGenerateMultipleOf(t *testing.T) {
	g := seededGenerator(7)
	node := &Node{Type: "number", Minimum: floatPtr(0), Maximum: floatPtr(100), MultipleOf: floatPtr(5)}

	for i := 0; i < 20; i++ {
		f := g.Generate(node).(float64)
		assert.Zero(t, int(f)%5, "value %v not a multiple of 5", f)
	}
}

func TestGenerateIntegerIsInt(t *testing.T) {
	g := seededGenerator(3)
	v := g.Generate(&Node{Type: "integer", Minimum: floatPtr(1), Maximum: floatPtr(9)})
	n, ok := v.(int)
	require.True(t, ok, "expected int, got %T", v)
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, 9)
}

func TestGenerateNegativeIntegerFloorsBelowMaximum(t *testing.T) {
	g := seededGenerator(11)
	node := &Node{Type: "integer", Minimum: floatPtr(-10.5), Maximum: floatPtr(-2.5)}

	for i := 0; i < 50; i++ {
		n, ok := g.Generate(node).(int)
		require.True(t, ok)
		assert.LessOrEqual(t, float64(n), -2.5, "draw %d rounded toward zero past the maximum", n)
		assert.GreaterOrEqual(t, n, -11)
	}
}

func TestGenerateObject(t *testing.T) {
	g := seededGenerator(1)
	node := &Node{
		Type: "object",
		Properties: map[string]*Node{
			"id":    {Type: "string", Format: "uuid"},
			"email": {Type: "string", Format: "email"},
			"age":   {Type: "integer", Minimum: floatPtr(18), Maximum: floatPtr(99)},
		},
	}

	v := g.Generate(node)
	obj, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Len(t, obj, 3)
	assert.Contains(t, obj, "id")
	assert.Contains(t, obj, "email")
	assert.IsType(t, 0, obj["age"])
}

func TestGenerateArrayLength(t *testing.T) {
	g := seededGenerator(2)

	node := &Node{Type: "array", Items: &Node{Type: "string"}}
	for i := 0; i < 20; i++ {
		arr := g.Generate(node).([]any)
		assert.GreaterOrEqual(t, len(arr), 1)
		assert.LessOrEqual(t, len(arr), 5)
	}

	node = &Node{Type: "array", Items: &Node{Type: "string"}, MinItems: intPtr(3), MaxItems: intPtr(3)}
	arr := g.Generate(node).([]any)
	assert.Len(t, arr, 3)
}

func TestGenerateDeterministicWithSeed(t *testing.T) {
	node := &Node{
		Type: "object",
		Properties: map[string]*Node{
			"id":   {Type: "string", Format: "uuid"},
			"name": {Type: "string"},
			"tags": {Type: "array", Items: &Node{Type: "string"}},
		},
	}

	a := seededGenerator(99).Generate(node)
	b := seededGenerator(99).Generate(node)
	assert.Equal(t, a, b)
}

func TestGenerateDepthGuard(t *testing.T) {
	// Self-referential node recurses until the depth cap cuts it off.
	node := &Node{Type: "object"}
	node.Properties = map[string]*Node{"child": node}

	g := NewGenerator(nil, WithMaxDepth(3))
	v := g.Generate(node)

	depth := 0
	for v != nil {
		obj, ok := v.(map[string]any)
		require.True(t, ok)
		v = obj["child"]
		depth++
		require.LessOrEqual(t, depth, 5, "recursion not bounded")
	}
	assert.Equal(t, 4, depth)
}

func TestGenerateNilAndUnknown(t *testing.T) {
	g := NewGenerator(nil)
	assert.Nil(t, g.Generate(nil))
	assert.Nil(t, g.Generate(&Node{Type: "null"}))
	assert.Nil(t, g.Generate(&Node{Type: "something-else"}))

	// Untyped node with properties is treated as an object.
	v := g.Generate(&Node{Properties: map[string]*Node{"a": {Type: "boolean"}}})
	obj, ok := v.(map[string]any)
	require.True(t, ok)
	assert.IsType(t, false, obj["a"])
}

func TestClampLen(t *testing.T) {
	g := seededGenerator(5)
	node := &Node{Type: "string", MinLength: intPtr(12), MaxLength: intPtr(12)}
	s := g.Generate(node).(string)
	assert.Len(t, s, 12)
}
