// Package resolver turns request descriptors into responses: it records
// history, runs interceptors, consults the route registry, executes the
// winning producer, and simulates response delay against an injectable clock.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mocktape/mocktape/pkg/logging"
	"github.com/mocktape/mocktape/pkg/mock"
	"github.com/mocktape/mocktape/pkg/registry"
	"github.com/mocktape/mocktape/pkg/validation"
)

// ScenarioSource supplies the name of the currently active scenario.
type ScenarioSource interface {
	Active() string
}

// StrictConfig enables outgoing response validation. Mismatches are logged,
// never returned as errors; strict mode must not change observable behavior.
type StrictConfig struct {
	// Validator checks responses against schemas.
	Validator *validation.Validator

	// SchemaFor returns the response schema for a request, or nil to skip.
	SchemaFor func(req *mock.Request) any
}

// Resolver handles request descriptors against a route registry.
type Resolver struct {
	registry *registry.Registry
	history  *History
	clock    Clock
	log      *slog.Logger

	mu           sync.RWMutex
	seq          int
	interceptors []interceptorEntry
	hooks        []hookEntry
	scenarios    ScenarioSource
	strict       *StrictConfig
	baseURL      string
}

type interceptorEntry struct {
	id int
	ic Interceptor
}

type hookEntry struct {
	id   int
	hook ResponseHook
}

// New creates a Resolver over the given registry.
func New(reg *registry.Registry) *Resolver {
	return &Resolver{
		registry: reg,
		history:  NewHistory(DefaultHistoryCapacity),
		clock:    SystemClock(),
		log:      logging.Nop(),
	}
}

// SetLogger sets the operational logger.
func (r *Resolver) SetLogger(log *slog.Logger) {
	if log == nil {
		log = logging.Nop()
	}
	r.log = log
}

// SetClock injects the clock used for delay simulation.
func (r *Resolver) SetClock(c Clock) {
	if c != nil {
		r.clock = c
	}
}

// SetScenarioSource wires the active-scenario supplier.
func (r *Resolver) SetScenarioSource(s ScenarioSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenarios = s
}

// SetStrict enables or disables strict response validation.
func (r *Resolver) SetStrict(cfg *StrictConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strict = cfg
}

// SetBaseURL configures the base for resolving relative request URLs.
func (r *Resolver) SetBaseURL(base string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baseURL = strings.TrimSuffix(base, "/")
}

// Use appends a request interceptor. Interceptors run in registration order;
// the first to short-circuit wins. The returned function removes the
// interceptor again and is safe to call more than once.
func (r *Resolver) Use(i Interceptor) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	id := r.seq
	r.interceptors = append(r.interceptors, interceptorEntry{id: id, ic: i})
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for idx, e := range r.interceptors {
			if e.id == id {
				r.interceptors = append(r.interceptors[:idx], r.interceptors[idx+1:]...)
				return
			}
		}
	}
}

// OnResponse appends a response hook. The returned function removes it.
func (r *Resolver) OnResponse(h ResponseHook) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	id := r.seq
	r.hooks = append(r.hooks, hookEntry{id: id, hook: h})
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for idx, e := range r.hooks {
			if e.id == id {
				r.hooks = append(r.hooks[:idx], r.hooks[idx+1:]...)
				return
			}
		}
	}
}

// ClearInterceptors removes all interceptors and response hooks.
func (r *Resolver) ClearInterceptors() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interceptors = nil
	r.hooks = nil
}

// History exposes the request history ring.
func (r *Resolver) History() *History {
	return r.history
}

// Registry exposes the underlying registry.
func (r *Resolver) Registry() *registry.Registry {
	return r.registry
}

func (r *Resolver) activeScenario() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.scenarios == nil {
		return registry.DefaultScenario
	}
	return r.scenarios.Active()
}

// Handle resolves a request to a response. It never returns a nil response
// with a nil error: unmatched routes synthesize a 404. The error return is
// reserved for cancellation during delay simulation and producer failures.
func (r *Resolver) Handle(ctx context.Context, req *mock.Request) (*mock.Response, error) {
	scenario := r.activeScenario()

	r.mu.RLock()
	base := r.baseURL
	interceptors := make([]interceptorEntry, len(r.interceptors))
	copy(interceptors, r.interceptors)
	hooks := make([]hookEntry, len(r.hooks))
	copy(hooks, r.hooks)
	strict := r.strict
	r.mu.RUnlock()

	if base != "" && strings.HasPrefix(req.URL, "/") {
		req = &mock.Request{
			Method:  req.Method,
			URL:     base + req.URL,
			Headers: req.Headers,
			Data:    req.Data,
		}
	}

	r.history.Append(HistoryEntry{
		Request:   req,
		Timestamp: r.clock.Now(),
		Scenario:  scenario,
	})

	for _, e := range interceptors {
		if resp, ok := e.ic.Intercept(ctx, req); ok && resp != nil {
			r.log.Debug("request intercepted",
				"method", req.Method, "url", req.URL, "status", resp.Status)
			return r.finish(ctx, req, resp, hooks, strict)
		}
	}

	candidate := r.registry.Resolve(req, scenario)
	if candidate == nil {
		r.log.Debug("no mock matched",
			"method", req.Method, "url", req.URL, "scenario", scenario)
		return r.finish(ctx, req, unmatchedResponse(req, scenario), hooks, strict)
	}

	resp, err := candidate.Definition.Producer(ctx, req, candidate.Params)
	if err != nil {
		return nil, fmt.Errorf("producer for %s %s failed (scenario %q): %w",
			req.Method, req.URL, scenario, err)
	}
	if resp == nil {
		resp = unmatchedResponse(req, scenario)
	}

	return r.finish(ctx, req, resp, hooks, strict)
}

// finish applies response hooks, waits out any simulated delay, and runs
// strict validation.
func (r *Resolver) finish(ctx context.Context, req *mock.Request, resp *mock.Response, hooks []hookEntry, strict *StrictConfig) (*mock.Response, error) {
	for _, e := range hooks {
		e.hook(req, resp)
	}

	if resp.Delay > 0 {
		select {
		case <-r.clock.After(resp.Delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("delay wait for %s %s interrupted: %w", req.Method, req.URL, ctx.Err())
		}
	}

	if strict != nil && strict.Validator != nil && strict.SchemaFor != nil {
		if schema := strict.SchemaFor(req); schema != nil {
			result := strict.Validator.ValidateResponse(resp, schema, req)
			if !result.Valid {
				r.log.Warn("strict mode: response failed schema validation",
					"method", req.Method,
					"url", req.URL,
					"errors", strings.Join(result.Messages(), "; "),
				)
			}
		}
	}

	return resp, nil
}

// unmatchedResponse synthesizes the 404 returned when nothing matches.
func unmatchedResponse(req *mock.Request, scenario string) *mock.Response {
	return &mock.Response{
		Status:     404,
		StatusText: "Not Found",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Data: map[string]any{
			"error":    fmt.Sprintf("no mock registered for %s %s", strings.ToUpper(req.Method), req.URL),
			"method":   strings.ToUpper(req.Method),
			"url":      req.URL,
			"scenario": scenario,
		},
	}
}
