package mock

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/ohler55/ojg/jp"
)

// Condition gates a Definition: the definition is only a resolution candidate
// when every condition accepts the request.
type Condition interface {
	Matches(req *Request) bool
}

// FuncCondition adapts a plain function to the Condition interface.
type FuncCondition func(req *Request) bool

// Matches implements Condition.
func (f FuncCondition) Matches(req *Request) bool { return f(req) }

// HeaderCondition requires a header to be present with the given value.
// An empty want matches any value. Header names match case-insensitively.
func HeaderCondition(name, want string) Condition {
	return FuncCondition(func(req *Request) bool {
		got := req.Header(name)
		if got == "" {
			return false
		}
		return want == "" || got == want
	})
}

// QueryCondition requires a query parameter to be present with the given value.
func QueryCondition(name, want string) Condition {
	return FuncCondition(func(req *Request) bool {
		vals, ok := req.Query()[name]
		if !ok || len(vals) == 0 {
			return false
		}
		return want == "" || vals[0] == want
	})
}

// JSONPathCondition evaluates a JSONPath expression against the request body
// and compares the first result to an expected value. A nil expected value
// turns the condition into an existence check.
type JSONPathCondition struct {
	Path     string
	Expected any

	compiled jp.Expr
	err      error
}

// NewJSONPathCondition parses the JSONPath expression up front so registration
// surfaces invalid paths instead of silently never matching.
func NewJSONPathCondition(path string, expected any) (*JSONPathCondition, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath %q: %w", path, err)
	}
	return &JSONPathCondition{Path: path, Expected: expected, compiled: x}, nil
}

// Matches implements Condition.
func (c *JSONPathCondition) Matches(req *Request) bool {
	if c.compiled == nil {
		x, err := jp.ParseString(c.Path)
		if err != nil {
			c.err = err
			return false
		}
		c.compiled = x
	}
	if req.Data == nil {
		return false
	}
	results := c.compiled.Get(req.Data)
	if len(results) == 0 {
		return false
	}
	if c.Expected == nil {
		return true
	}
	return looseEqual(results[0], c.Expected)
}

// looseEqual compares JSON-ish values, tolerating int/float64 mismatch from
// decoded JSON numbers.
func looseEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af == bf
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// ExprCondition evaluates an expr-lang boolean expression against the request.
// The expression environment exposes method, path, url, headers, query and
// data. Example: `method == "POST" && data.amount > 100`.
type ExprCondition struct {
	Source  string
	program *vm.Program
}

// NewExprCondition compiles the expression. Compilation errors are programmer
// errors and surface at registration time.
func NewExprCondition(source string) (*ExprCondition, error) {
	program, err := expr.Compile(source, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid condition expression %q: %w", source, err)
	}
	return &ExprCondition{Source: source, program: program}, nil
}

// Matches implements Condition. Evaluation errors count as non-matches.
func (c *ExprCondition) Matches(req *Request) bool {
	if c.program == nil {
		return false
	}

	query := make(map[string]string)
	for k, v := range req.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	headers := make(map[string]string, len(req.Headers))
	for k, v := range req.Headers {
		headers[strings.ToLower(k)] = v
	}

	env := map[string]any{
		"method":  strings.ToUpper(req.Method),
		"path":    req.Path(),
		"url":     req.URL,
		"headers": headers,
		"query":   query,
		"data":    req.Data,
	}

	out, err := expr.Run(c.program, env)
	if err != nil {
		return false
	}
	b, ok := out.(bool)
	return ok && b
}
