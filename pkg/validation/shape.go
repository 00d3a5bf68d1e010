package validation

import (
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/mocktape/mocktape/pkg/mock"
)

// Shape is a lightweight structural expectation for a response: expected
// status, headers, required keys with optional type tags, arrays that must be
// non-empty, and JSONPath assertions against the body.
type Shape struct {
	// Status, when non-zero, must equal the response status.
	Status int `json:"status,omitempty" yaml:"status,omitempty"`

	// Headers must be present with the given values (case-insensitive names).
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Required maps top-level body keys to an expected type tag:
	// string, number, boolean, array, object, or "" for presence only.
	Required map[string]string `json:"required,omitempty" yaml:"required,omitempty"`

	// NonEmpty lists top-level keys whose array values must not be empty.
	NonEmpty []string `json:"nonEmpty,omitempty" yaml:"nonEmpty,omitempty"`

	// JSONPath maps JSONPath expressions to expected values; a nil expected
	// value asserts existence only.
	JSONPath map[string]any `json:"jsonPath,omitempty" yaml:"jsonPath,omitempty"`
}

// CheckShape validates a response against a structural shape.
func CheckShape(resp *mock.Response, shape *Shape) *Result {
	result := OK()
	if shape == nil {
		return result
	}

	if shape.Status != 0 && resp.Status != shape.Status {
		result.AddError(&FieldError{
			Location: LocationStatus,
			Code:     ErrCodeStatus,
			Message:  fmt.Sprintf("status %d, want %d", resp.Status, shape.Status),
			Expected: fmt.Sprintf("%d", shape.Status),
		})
	}

	for name, want := range shape.Headers {
		got := headerValue(resp.Headers, name)
		if got == "" {
			result.AddError(&FieldError{
				Field:    name,
				Location: LocationHeader,
				Code:     ErrCodeHeader,
				Message:  fmt.Sprintf("missing header %q", name),
			})
			continue
		}
		if want != "" && got != want {
			result.AddError(&FieldError{
				Field:    name,
				Location: LocationHeader,
				Code:     ErrCodeHeader,
				Message:  fmt.Sprintf("header %q = %q, want %q", name, got, want),
				Expected: want,
			})
		}
	}

	body, _ := resp.Data.(map[string]any)

	for key, typeTag := range shape.Required {
		if body == nil {
			result.AddError(&FieldError{
				Field:    key,
				Location: LocationBody,
				Code:     ErrCodeRequired,
				Message:  fmt.Sprintf("required key %q missing (body is not an object)", key),
			})
			continue
		}
		val, ok := body[key]
		if !ok {
			result.AddError(&FieldError{
				Field:    key,
				Location: LocationBody,
				Code:     ErrCodeRequired,
				Message:  fmt.Sprintf("required key %q missing", key),
			})
			continue
		}
		if typeTag != "" && !typeMatches(val, typeTag) {
			result.AddError(&FieldError{
				Field:    key,
				Location: LocationBody,
				Code:     ErrCodeType,
				Message:  fmt.Sprintf("key %q has type %T, want %s", key, val, typeTag),
				Expected: typeTag,
			})
		}
	}

	for _, key := range shape.NonEmpty {
		val, ok := body[key]
		if !ok {
			result.AddError(&FieldError{
				Field:    key,
				Location: LocationBody,
				Code:     ErrCodeRequired,
				Message:  fmt.Sprintf("expected non-empty array %q missing", key),
			})
			continue
		}
		arr, ok := val.([]any)
		if !ok || len(arr) == 0 {
			result.AddError(&FieldError{
				Field:    key,
				Location: LocationBody,
				Code:     ErrCodeEmptyArray,
				Message:  fmt.Sprintf("array %q is empty", key),
			})
		}
	}

	for path, expected := range shape.JSONPath {
		checkJSONPath(resp.Data, path, expected, result)
	}

	return result
}

func checkJSONPath(data any, path string, expected any, result *Result) {
	x, err := jp.ParseString(path)
	if err != nil {
		result.AddError(&FieldError{
			Field:    path,
			Location: LocationBody,
			Code:     ErrCodeJSONPath,
			Message:  fmt.Sprintf("invalid jsonpath %q: %v", path, err),
		})
		return
	}
	results := x.Get(data)
	if len(results) == 0 {
		result.AddError(&FieldError{
			Field:    path,
			Location: LocationBody,
			Code:     ErrCodeJSONPath,
			Message:  fmt.Sprintf("jsonpath %q matched nothing", path),
		})
		return
	}
	if expected == nil {
		return
	}
	if !jsonEqual(results[0], expected) {
		result.AddError(&FieldError{
			Field:    path,
			Location: LocationBody,
			Code:     ErrCodeJSONPath,
			Message:  fmt.Sprintf("jsonpath %q = %v, want %v", path, results[0], expected),
			Expected: fmt.Sprintf("%v", expected),
		})
	}
}

func jsonEqual(a, b any) bool {
	if a == b {
		return true
	}
	af, aok := numeric(a)
	bf, bok := numeric(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func typeMatches(val any, typeTag string) bool {
	switch typeTag {
	case "string":
		_, ok := val.(string)
		return ok
	case "number", "integer":
		_, ok := numeric(val)
		return ok
	case "boolean":
		_, ok := val.(bool)
		return ok
	case "array":
		_, ok := val.([]any)
		return ok
	case "object":
		_, ok := val.(map[string]any)
		return ok
	default:
		return true
	}
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
