package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mocktape/mocktape/pkg/mock"
)

func TestCheckShape_NilShapePasses(t *testing.T) {
	resp := &mock.Response{Status: 500}
	assert.True(t, CheckShape(resp, nil).Valid)
}

func TestCheckShape_Status(t *testing.T) {
	resp := &mock.Response{Status: 404}
	result := CheckShape(resp, &Shape{Status: 200})
	require.False(t, result.Valid)
	assert.Equal(t, ErrCodeStatus, result.Errors[0].Code)
}

func TestCheckShape_HeadersCaseInsensitive(t *testing.T) {
	resp := &mock.Response{
		Status:  200,
		Headers: map[string]string{"content-type": "application/json"},
	}
	result := CheckShape(resp, &Shape{Headers: map[string]string{"Content-Type": "application/json"}})
	assert.True(t, result.Valid)
}

func TestCheckShape_RequiredKeysAndTypes(t *testing.T) {
	resp := &mock.Response{
		Status: 200,
		Data: map[string]any{
			"id":    "u1",
			"count": float64(3),
			"tags":  []any{"a"},
		},
	}

	tests := []struct {
		name  string
		shape *Shape
		valid bool
	}{
		{"all present", &Shape{Required: map[string]string{"id": "string", "count": "number", "tags": "array"}}, true},
		{"presence only", &Shape{Required: map[string]string{"id": ""}}, true},
		{"missing key", &Shape{Required: map[string]string{"missing": ""}}, false},
		{"wrong type", &Shape{Required: map[string]string{"id": "number"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, CheckShape(resp, tt.shape).Valid)
		})
	}
}

func TestCheckShape_NonEmptyArrays(t *testing.T) {
	resp := &mock.Response{
		Status: 200,
		Data:   map[string]any{"items": []any{}, "users": []any{"x"}},
	}

	assert.True(t, CheckShape(resp, &Shape{NonEmpty: []string{"users"}}).Valid)

	result := CheckShape(resp, &Shape{NonEmpty: []string{"items"}})
	require.False(t, result.Valid)
	assert.Equal(t, ErrCodeEmptyArray, result.Errors[0].Code)
}

func TestCheckShape_JSONPath(t *testing.T) {
	resp := &mock.Response{
		Status: 200,
		Data: map[string]any{
			"user": map[string]any{"name": "Ann", "age": float64(30)},
		},
	}

	// Existence
	assert.True(t, CheckShape(resp, &Shape{JSONPath: map[string]any{"$.user.name": nil}}).Valid)

	// Value assertion, tolerating int/float64
	assert.True(t, CheckShape(resp, &Shape{JSONPath: map[string]any{"$.user.age": 30}}).Valid)

	// Mismatch
	result := CheckShape(resp, &Shape{JSONPath: map[string]any{"$.user.name": "Bob"}})
	assert.False(t, result.Valid)

	// Path matches nothing
	result = CheckShape(resp, &Shape{JSONPath: map[string]any{"$.user.email": nil}})
	assert.False(t, result.Valid)
}

func TestCheckShape_BodyNotObject(t *testing.T) {
	resp := &mock.Response{Status: 200, Data: []any{"not", "an", "object"}}
	result := CheckShape(resp, &Shape{Required: map[string]string{"id": ""}})
	assert.False(t, result.Valid)
}
