// Package mock provides the core data model for the virtualization engine:
// request and response descriptors, mock definitions, and the conditions
// that gate them.
package mock

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Request is the transport-independent request descriptor fed into the engine.
// URL may be absolute or relative to a configured base.
type Request struct {
	Method  string            `json:"method" yaml:"method"`
	URL     string            `json:"url" yaml:"url"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Data    any               `json:"data,omitempty" yaml:"data,omitempty"`
}

// Path returns the path component of the request URL.
// Invalid URLs yield the raw string so matching still has something to work with.
func (r *Request) Path() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

// Query returns the parsed query parameters of the request URL.
func (r *Request) Query() url.Values {
	u, err := url.Parse(r.URL)
	if err != nil {
		return url.Values{}
	}
	return u.Query()
}

// SortedQuery returns the query string with keys and values in sorted order.
// Used for deterministic request fingerprinting.
func (r *Request) SortedQuery() string {
	q := r.Query()
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		vals := append([]string(nil), q[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// Header returns the value of the named header, matched case-insensitively.
func (r *Request) Header(name string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Response is the response descriptor produced by a mock.
type Response struct {
	Status     int               `json:"status" yaml:"status"`
	StatusText string            `json:"statusText,omitempty" yaml:"statusText,omitempty"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Data       any               `json:"data,omitempty" yaml:"data,omitempty"`
	Delay      time.Duration     `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// Clone returns a deep copy of the response. Headers and nested Data
// structures are copied so callers can mutate the clone freely.
func (resp *Response) Clone() *Response {
	if resp == nil {
		return nil
	}
	out := &Response{
		Status:     resp.Status,
		StatusText: resp.StatusText,
		Delay:      resp.Delay,
	}
	if resp.Headers != nil {
		out.Headers = make(map[string]string, len(resp.Headers))
		for k, v := range resp.Headers {
			out.Headers[k] = v
		}
	}
	out.Data = CloneValue(resp.Data)
	return out
}

// CloneValue deep-copies a JSON-like value (maps, slices, scalars).
// Values of other types are returned as-is.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = CloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Producer builds the response for a matched request. Params carries values
// captured from :param segments in the definition's path pattern.
type Producer func(ctx context.Context, req *Request, params map[string]string) (*Response, error)

// StaticProducer returns a Producer that always yields a clone of resp.
func StaticProducer(resp *Response) Producer {
	return func(context.Context, *Request, map[string]string) (*Response, error) {
		return resp.Clone(), nil
	}
}

// JSONProducer returns a Producer yielding a 200 response with the given data.
func JSONProducer(data any) Producer {
	return StaticProducer(&Response{
		Status:  200,
		Headers: map[string]string{"Content-Type": "application/json"},
		Data:    data,
	})
}

// Definition describes a single registered mock: what it matches and what it
// produces. Multiple definitions may share a method+pattern; resolution picks
// the highest-priority definition whose conditions pass and whose scenario
// tag matches the active scenario.
type Definition struct {
	// ID uniquely identifies the definition within a registry.
	ID string `json:"id" yaml:"id"`

	// Method is the HTTP-style method this definition answers. "*" matches any.
	Method string `json:"method" yaml:"method"`

	// Pattern is the path pattern: a literal path, a :param/“*”/“**” pattern,
	// or a regular expression.
	Pattern string `json:"pattern" yaml:"pattern"`

	// Producer builds the response when this definition wins resolution.
	Producer Producer `json:"-" yaml:"-"`

	// Scenario tags the definition as belonging to a named scenario.
	// Empty means globally registered (active under every scenario).
	Scenario string `json:"scenario,omitempty" yaml:"scenario,omitempty"`

	// Owner identifies who registered the definition (a scenario, a flow,
	// or empty for direct registrations). Used for scoped removal.
	Owner string `json:"owner,omitempty" yaml:"owner,omitempty"`

	// Priority determines resolution order; higher wins.
	Priority int `json:"priority,omitempty" yaml:"priority,omitempty"`

	// Conditions must all pass for the definition to be a candidate.
	Conditions []Condition `json:"-" yaml:"-"`

	// Seq is the registration sequence number, assigned by the registry.
	// Ties on priority break toward the lower Seq.
	Seq int64 `json:"-" yaml:"-"`
}

// MatchesMethod reports whether the definition answers the given method.
func (d *Definition) MatchesMethod(method string) bool {
	return d.Method == "*" || strings.EqualFold(d.Method, method)
}

// ConditionsPass reports whether every condition accepts the request.
func (d *Definition) ConditionsPass(req *Request) bool {
	for _, c := range d.Conditions {
		if c == nil {
			continue
		}
		if !c.Matches(req) {
			return false
		}
	}
	return true
}
