// Package flow executes named multi-step request sequences against the
// resolver, threading each step's response data into the next step through
// {{key}} placeholder interpolation.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mocktape/mocktape/pkg/logging"
	"github.com/mocktape/mocktape/pkg/mock"
	"github.com/mocktape/mocktape/pkg/registry"
	"github.com/mocktape/mocktape/pkg/resolver"
	"github.com/mocktape/mocktape/pkg/validation"
)

// RouteMock is a mock a flow installs for its own duration, owner-tagged so
// removal never touches mocks registered elsewhere.
type RouteMock struct {
	Method   string
	Pattern  string
	Producer mock.Producer
	Priority int
}

// Step is one request in a flow. Path, Headers, and Body are interpolated
// against the accumulated context before dispatch.
type Step struct {
	Name    string
	Method  string
	Path    string
	Headers map[string]string
	Body    any

	// Register installs mocks before this step runs, owned by the flow.
	Register []RouteMock

	// ExpectedShape is the structural check applied to the response.
	ExpectedShape *validation.Shape

	// ResponseSchema, when set, validates the response data against a JSON
	// Schema document after the shape check.
	ResponseSchema any

	// Validate is an optional custom check run last.
	Validate func(resp *mock.Response) error
}

// Options tune flow execution.
type Options struct {
	// ResetBetweenSteps removes the flow's own mocks after each step.
	ResetBetweenSteps bool

	// ContinueOnFailure keeps executing after a failed step.
	ContinueOnFailure bool

	// Timeout bounds each step, covering delay simulation. Zero means none.
	Timeout time.Duration
}

// Definition is a named flow.
type Definition struct {
	Name    string
	Steps   []Step
	Mocks   []RouteMock
	Options Options
}

// StepResult records one executed step.
type StepResult struct {
	Name     string
	Request  *mock.Request
	Response *mock.Response
	Duration time.Duration
	Success  bool
	Err      error
}

// Result is the outcome of a flow execution.
type Result struct {
	Flow     string
	Success  bool
	Steps    []StepResult
	Errors   []error
	Duration time.Duration
	Context  map[string]any
}

// Orchestrator registers and executes flows.
type Orchestrator struct {
	resolver  *resolver.Resolver
	validator *validation.Validator
	log       *slog.Logger

	mu    sync.Mutex
	flows map[string]*Definition
}

// NewOrchestrator creates an Orchestrator dispatching through the resolver.
func NewOrchestrator(res *resolver.Resolver) *Orchestrator {
	return &Orchestrator{
		resolver:  res,
		validator: validation.NewValidator(),
		log:       logging.Nop(),
		flows:     make(map[string]*Definition),
	}
}

// SetLogger sets the operational logger.
func (o *Orchestrator) SetLogger(log *slog.Logger) {
	if log == nil {
		log = logging.Nop()
	}
	o.log = log
}

// Register stores a flow definition under its name.
func (o *Orchestrator) Register(def *Definition) error {
	if def == nil || def.Name == "" {
		return fmt.Errorf("flow definition needs a name")
	}
	if len(def.Steps) == 0 {
		return fmt.Errorf("flow %q has no steps", def.Name)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.flows[def.Name] = def
	return nil
}

// Flows returns the registered flow names.
func (o *Orchestrator) Flows() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	names := make([]string, 0, len(o.flows))
	for name := range o.flows {
		names = append(names, name)
	}
	return names
}

// Execute runs the named flow. Steps execute in order; a failed step stops
// the flow unless ContinueOnFailure is set. Each successful step's response
// data is merged into the context under both "step<N>Response" (1-based) and
// the step's own name.
func (o *Orchestrator) Execute(ctx context.Context, name string, initial map[string]any) (*Result, error) {
	o.mu.Lock()
	def, ok := o.flows[name]
	o.mu.Unlock()
	if !ok {
		return nil, &UnknownFlowError{Name: name}
	}

	owner := "flow:" + name
	reg := o.resolver.Registry()
	defer reg.RemoveOwner(owner)

	flowCtx := make(map[string]any, len(initial))
	for k, v := range initial {
		flowCtx[k] = v
	}
	for _, rm := range def.Mocks {
		o.installMock(reg, owner, rm)
	}

	result := &Result{Flow: name, Success: true, Context: flowCtx}
	start := time.Now()

	for i := range def.Steps {
		step := &def.Steps[i]
		sr := o.executeStep(ctx, def, i, step, flowCtx, owner)
		result.Steps = append(result.Steps, sr)

		if def.Options.ResetBetweenSteps {
			reg.RemoveOwner(owner)
		}

		if !sr.Success {
			result.Success = false
			result.Errors = append(result.Errors, sr.Err)
			if !def.Options.ContinueOnFailure {
				break
			}
			continue
		}

		flowCtx[fmt.Sprintf("step%dResponse", i+1)] = sr.Response.Data
		if step.Name != "" {
			flowCtx[step.Name] = sr.Response.Data
		}
	}

	result.Duration = time.Since(start)
	o.log.Debug("flow executed",
		"flow", name, "success", result.Success, "steps", len(result.Steps), "duration", result.Duration)
	return result, nil
}

func (o *Orchestrator) executeStep(ctx context.Context, def *Definition, index int, step *Step, flowCtx map[string]any, owner string) StepResult {
	reg := o.resolver.Registry()
	for _, rm := range step.Register {
		o.installMock(reg, owner, rm)
	}

	req := &mock.Request{
		Method:  step.Method,
		URL:     fmt.Sprint(Interpolate(step.Path, flowCtx)),
		Headers: InterpolateHeaders(step.Headers, flowCtx),
		Data:    Interpolate(step.Body, flowCtx),
	}

	stepCtx := ctx
	if def.Options.Timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, def.Options.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := o.resolver.Handle(stepCtx, req)
	sr := StepResult{
		Name:     step.Name,
		Request:  req,
		Response: resp,
		Duration: time.Since(start),
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", def.Options.Timeout, err)
		}
		sr.Err = &StepError{Flow: def.Name, Step: step.Name, Index: index, Err: err}
		return sr
	}

	if step.ExpectedShape != nil {
		check := validation.CheckShape(resp, step.ExpectedShape)
		if !check.Valid {
			sr.Err = &StepError{
				Flow:  def.Name,
				Step:  step.Name,
				Index: index,
				Err:   fmt.Errorf("response shape mismatch: %s", strings.Join(check.Messages(), "; ")),
			}
			return sr
		}
	}
	if step.ResponseSchema != nil {
		vres := o.validator.ValidateResponse(resp, step.ResponseSchema, req)
		if !vres.Valid {
			sr.Err = &StepError{
				Flow:  def.Name,
				Step:  step.Name,
				Index: index,
				Err:   fmt.Errorf("response schema validation failed: %s", strings.Join(vres.Messages(), "; ")),
			}
			return sr
		}
	}
	if step.Validate != nil {
		if err := step.Validate(resp); err != nil {
			sr.Err = &StepError{Flow: def.Name, Step: step.Name, Index: index, Err: err}
			return sr
		}
	}

	sr.Success = true
	return sr
}

func (o *Orchestrator) installMock(reg *registry.Registry, owner string, rm RouteMock) {
	reg.Register(rm.Method, rm.Pattern, rm.Producer, &registry.Options{
		Owner:    owner,
		Priority: rm.Priority,
	})
}
