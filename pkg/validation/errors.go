package validation

import "fmt"

// Error code constants for machine-readable error identification.
const (
	ErrCodeRequired    = "required"
	ErrCodeType        = "type"
	ErrCodeEmptyArray  = "empty_array"
	ErrCodeStatus      = "status"
	ErrCodeHeader      = "header"
	ErrCodeSchema      = "schema"
	ErrCodeJSONPath    = "jsonpath"
	ErrCodeInvalidJSON = "invalid_json"
)

// Location constants.
const (
	LocationBody    = "body"
	LocationStatus  = "status"
	LocationHeader  = "header"
	LocationRequest = "request"
)

// FieldError describes a single validation failure.
type FieldError struct {
	// Field is the name or path of the field that failed validation.
	Field string `json:"field,omitempty"`

	// Location indicates where the field is: body, status, header, request.
	Location string `json:"location"`

	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Expected describes what was expected.
	Expected string `json:"expected,omitempty"`
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s.%s: %s", e.Location, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Location, e.Message)
}

// Result contains the outcome of a validation pass.
type Result struct {
	// Valid is true if validation passed.
	Valid bool `json:"valid"`

	// Errors contains validation errors (when Valid is false).
	Errors []*FieldError `json:"errors,omitempty"`
}

// OK returns a passing result.
func OK() *Result { return &Result{Valid: true} }

// AddError adds a validation error to the result and marks it invalid.
func (r *Result) AddError(err *FieldError) {
	r.Valid = false
	r.Errors = append(r.Errors, err)
}

// Merge folds another result into this one.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	if !other.Valid {
		r.Valid = false
	}
	r.Errors = append(r.Errors, other.Errors...)
}

// Messages returns the error messages as plain strings.
func (r *Result) Messages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Error())
	}
	return out
}
