// Package cassette records request/response traffic into named, persisted
// cassettes and replays it deterministically. Recordings are keyed by a
// request fingerprint and sanitized before storage.
package cassette

import (
	"time"

	"github.com/mocktape/mocktape/internal/id"
	"github.com/mocktape/mocktape/pkg/mock"
)

// Version is the cassette file format version.
const Version = "1.0"

// RecordedRequest is the persisted form of a request.
type RecordedRequest struct {
	Method  string            `json:"method" yaml:"method"`
	URL     string            `json:"url" yaml:"url"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Data    any               `json:"data,omitempty" yaml:"data,omitempty"`
}

// RecordedResponse is the persisted form of a response.
type RecordedResponse struct {
	Status     int               `json:"status" yaml:"status"`
	StatusText string            `json:"statusText,omitempty" yaml:"statusText,omitempty"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Data       any               `json:"data,omitempty" yaml:"data,omitempty"`
	Duration   time.Duration     `json:"duration" yaml:"duration"`
}

// Recording is one request/response pair in a cassette.
type Recording struct {
	ID        string           `json:"id" yaml:"id"`
	Request   RecordedRequest  `json:"request" yaml:"request"`
	Response  RecordedResponse `json:"response" yaml:"response"`
	Timestamp time.Time        `json:"timestamp" yaml:"timestamp"`
	Duration  time.Duration    `json:"duration" yaml:"duration"`
	Metadata  map[string]any   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Metadata is the summary block recomputed on every save.
type Metadata struct {
	TotalRequests   int `json:"totalRequests" yaml:"totalRequests"`
	UniqueEndpoints int `json:"uniqueEndpoints" yaml:"uniqueEndpoints"`
}

// Cassette is a named collection of recordings, one file on disk.
type Cassette struct {
	Name       string       `json:"name" yaml:"name"`
	Version    string       `json:"version" yaml:"version"`
	CreatedAt  time.Time    `json:"createdAt" yaml:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt" yaml:"updatedAt"`
	Recordings []*Recording `json:"recordings" yaml:"recordings"`
	Metadata   Metadata     `json:"metadata" yaml:"metadata"`
}

// NewCassette creates an empty cassette.
func NewCassette(name string) *Cassette {
	now := time.Now().UTC()
	return &Cassette{
		Name:      name,
		Version:   Version,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewRecording builds a Recording from a request/response pair. The caller
// is expected to have sanitized both sides already.
func NewRecording(req RecordedRequest, resp RecordedResponse, duration time.Duration, metadata map[string]any) *Recording {
	return &Recording{
		ID:        id.Short(),
		Request:   req,
		Response:  resp,
		Timestamp: time.Now().UTC(),
		Duration:  duration,
		Metadata:  metadata,
	}
}

// ToRequest reconstructs the request descriptor, used to recompute
// fingerprints when a cassette is loaded.
func (r *Recording) ToRequest() *mock.Request {
	return r.Request.descriptor()
}

func (r RecordedRequest) descriptor() *mock.Request {
	return &mock.Request{
		Method:  r.Method,
		URL:     r.URL,
		Headers: r.Headers,
		Data:    r.Data,
	}
}

// ToResponse deep-clones the stored response into a response descriptor.
func (r *Recording) ToResponse() *mock.Response {
	headers := make(map[string]string, len(r.Response.Headers))
	for k, v := range r.Response.Headers {
		headers[k] = v
	}
	return &mock.Response{
		Status:     r.Response.Status,
		StatusText: r.Response.StatusText,
		Headers:    headers,
		Data:       mock.CloneValue(r.Response.Data),
	}
}
