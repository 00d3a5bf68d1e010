// Package validation provides the schema validator collaborator consumed by
// the resolver (strict mode) and the flow orchestrator (per-step checks).
// JSON Schema validation uses santhosh-tekuri/jsonschema; structural shape
// checks live in shape.go.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mocktape/mocktape/pkg/mock"
)

// Validator validates request and response bodies against JSON Schemas.
// Schemas are compiled once and cached by their serialized form.
type Validator struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

// NewValidator creates a Validator with an empty schema cache.
func NewValidator() *Validator {
	return &Validator{compiled: make(map[string]*jsonschema.Schema)}
}

// ValidateRequest validates the request body against a JSON Schema document.
// A nil schema passes trivially.
func (v *Validator) ValidateRequest(req *mock.Request, schema any) *Result {
	if schema == nil {
		return OK()
	}
	result := v.validateValue(req.Data, schema, LocationRequest)
	if !result.Valid {
		for _, e := range result.Errors {
			e.Message = fmt.Sprintf("%s %s: %s", strings.ToUpper(req.Method), req.URL, e.Message)
		}
	}
	return result
}

// ValidateResponse validates the response data against a JSON Schema document.
// The originating request, when given, enriches error messages.
func (v *Validator) ValidateResponse(resp *mock.Response, schema any, req *mock.Request) *Result {
	if schema == nil {
		return OK()
	}
	result := v.validateValue(resp.Data, schema, LocationBody)
	if !result.Valid && req != nil {
		for _, e := range result.Errors {
			e.Message = fmt.Sprintf("response to %s %s: %s", strings.ToUpper(req.Method), req.URL, e.Message)
		}
	}
	return result
}

func (v *Validator) validateValue(value any, schema any, location string) *Result {
	result := OK()

	compiled, err := v.compile(schema)
	if err != nil {
		result.AddError(&FieldError{
			Location: location,
			Code:     ErrCodeSchema,
			Message:  fmt.Sprintf("schema compilation error: %v", err),
		})
		return result
	}

	// Roundtrip through JSON so Go-typed values (int, structs) validate the
	// same way decoded JSON does.
	normalized, err := normalize(value)
	if err != nil {
		result.AddError(&FieldError{
			Location: location,
			Code:     ErrCodeInvalidJSON,
			Message:  fmt.Sprintf("value is not JSON-representable: %v", err),
		})
		return result
	}

	if err := compiled.Validate(normalized); err != nil {
		var ve *jsonschema.ValidationError
		if vErr, ok := err.(*jsonschema.ValidationError); ok {
			ve = vErr
			collectSchemaErrors(ve, result, location)
		} else {
			result.AddError(&FieldError{
				Location: location,
				Code:     ErrCodeSchema,
				Message:  err.Error(),
			})
		}
	}
	return result
}

// compile compiles and caches a schema document keyed by its JSON form.
func (v *Validator) compile(schema any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	key := string(raw)

	v.mu.Lock()
	defer v.mu.Unlock()

	if compiled, ok := v.compiled[key]; ok {
		return compiled, nil
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema.json", strings.NewReader(key)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, err
	}
	v.compiled[key] = compiled
	return compiled, nil
}

func normalize(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// collectSchemaErrors flattens the nested cause tree into field errors.
func collectSchemaErrors(err *jsonschema.ValidationError, result *Result, location string) {
	if len(err.Causes) == 0 {
		result.AddError(&FieldError{
			Field:    fieldFromPointer(err.InstanceLocation),
			Location: location,
			Code:     ErrCodeSchema,
			Message:  err.Message,
		})
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(cause, result, location)
	}
}

// fieldFromPointer extracts a field name from a JSON Pointer like "/user/name".
func fieldFromPointer(ptr string) string {
	if ptr == "" || ptr == "/" {
		return ""
	}
	return strings.ReplaceAll(strings.TrimPrefix(ptr, "/"), "/", ".")
}
