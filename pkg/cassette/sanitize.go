package cassette

import (
	"strings"
	"time"

	"github.com/mocktape/mocktape/pkg/mock"
)

// DefaultFilterHeaders are replaced with the redaction marker in persisted
// recordings, matched case-insensitively.
var DefaultFilterHeaders = []string{
	"Authorization",
	"Cookie",
	"Set-Cookie",
	"X-API-Key",
	"X-Auth-Token",
}

// DefaultBodyKeySubstrings mark body fields for redaction: any key that
// contains one of these substrings (case-insensitive) is redacted, at any
// nesting depth.
var DefaultBodyKeySubstrings = []string{
	"pass",
	"secret",
	"token",
	"apikey",
	"api_key",
}

// DefaultRedactValue replaces redacted values.
const DefaultRedactValue = "[REDACTED]"

// Sanitizer strips sensitive material from requests and responses before
// they are persisted.
type Sanitizer struct {
	FilterHeaders []string
	BodyKeys      []string
	RedactValue   string
}

// NewSanitizer returns a Sanitizer with the default filter sets.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		FilterHeaders: DefaultFilterHeaders,
		BodyKeys:      DefaultBodyKeySubstrings,
		RedactValue:   DefaultRedactValue,
	}
}

// Headers returns a copy with sensitive headers redacted.
func (s *Sanitizer) Headers(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	filtered := make(map[string]string, len(headers))
	for k, v := range headers {
		if s.sensitiveHeader(k) {
			filtered[k] = s.RedactValue
		} else {
			filtered[k] = v
		}
	}
	return filtered
}

// Body returns a deep copy with sensitive fields redacted, recursing through
// nested maps and slices.
func (s *Sanitizer) Body(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if s.sensitiveKey(k) {
				out[k] = s.RedactValue
			} else {
				out[k] = s.Body(item)
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = s.Body(item)
		}
		return out
	default:
		return v
	}
}

// Request sanitizes a request descriptor into its persisted form.
func (s *Sanitizer) Request(req *mock.Request) RecordedRequest {
	return RecordedRequest{
		Method:  strings.ToUpper(req.Method),
		URL:     req.URL,
		Headers: s.Headers(req.Headers),
		Data:    s.Body(mock.CloneValue(req.Data)),
	}
}

// Response sanitizes a response descriptor into its persisted form.
func (s *Sanitizer) Response(resp *mock.Response, duration time.Duration) RecordedResponse {
	return RecordedResponse{
		Status:     resp.Status,
		StatusText: resp.StatusText,
		Headers:    s.Headers(resp.Headers),
		Data:       s.Body(mock.CloneValue(resp.Data)),
		Duration:   duration,
	}
}

func (s *Sanitizer) sensitiveHeader(name string) bool {
	for _, h := range s.FilterHeaders {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}

func (s *Sanitizer) sensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sub := range s.BodyKeys {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
