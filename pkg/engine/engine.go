// Package engine assembles the virtualization engine: one MockEngine owns a
// route registry, resolver, scenario manager, flow orchestrator, and
// record/playback engine. Engines are independent; tests can run one per
// parallel worker without shared state.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	mathrand "math/rand/v2"
	"time"

	"github.com/mocktape/mocktape/pkg/cassette"
	"github.com/mocktape/mocktape/pkg/flow"
	"github.com/mocktape/mocktape/pkg/logging"
	"github.com/mocktape/mocktape/pkg/mock"
	"github.com/mocktape/mocktape/pkg/registry"
	"github.com/mocktape/mocktape/pkg/resolver"
	"github.com/mocktape/mocktape/pkg/scenario"
	"github.com/mocktape/mocktape/pkg/schema"
)

// Config tunes a new MockEngine. The zero value is usable.
type Config struct {
	// BaseURL resolves relative request URLs.
	BaseURL string

	// Logger receives operational logs. Nil disables logging.
	Logger *slog.Logger

	// Seed makes probabilistic scenarios and synthetic data deterministic.
	// Zero leaves the global random source in place.
	Seed uint64

	// CassetteDir enables record/playback: cassettes are stored here as
	// one JSON file each.
	CassetteDir string

	// CassetteMode is the initial record/playback mode. Defaults to
	// playback when CassetteDir is set.
	CassetteMode cassette.Mode

	// Clock overrides delay simulation timing, for tests.
	Clock resolver.Clock
}

// MockEngine is the top-level façade over the virtualization subsystems.
type MockEngine struct {
	log *slog.Logger
	rng *mathrand.Rand

	registry  *registry.Registry
	resolver  *resolver.Resolver
	scenarios *scenario.Manager
	flows     *flow.Orchestrator
	recorder  *cassette.Engine
	generator *schema.Generator
}

// New builds a MockEngine with the built-in scenario catalog registered.
func New(cfg Config) (*MockEngine, error) {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}

	reg := registry.New()
	res := resolver.New(reg)
	res.SetLogger(log)
	if cfg.BaseURL != "" {
		res.SetBaseURL(cfg.BaseURL)
	}
	if cfg.Clock != nil {
		res.SetClock(cfg.Clock)
	}

	var rng *mathrand.Rand
	if cfg.Seed != 0 {
		rng = mathrand.New(mathrand.NewPCG(cfg.Seed, 0))
	}

	scenarios := scenario.NewManager(res)
	scenarios.SetLogger(log)
	scenarios.SetRand(rng)
	scenario.RegisterBuiltins(scenarios)

	flows := flow.NewOrchestrator(res)
	flows.SetLogger(log)

	e := &MockEngine{
		log:       log,
		rng:       rng,
		registry:  reg,
		resolver:  res,
		scenarios: scenarios,
		flows:     flows,
		generator: schema.NewGenerator(schema.NewFaker(rng), schema.WithRand(rng)),
	}

	if cfg.CassetteDir != "" {
		store, err := cassette.NewFileStore(cfg.CassetteDir)
		if err != nil {
			return nil, err
		}
		e.recorder = cassette.NewEngine(store)
		e.recorder.SetLogger(log)
		if cfg.CassetteMode != "" {
			e.recorder.SetMode(cfg.CassetteMode)
		}
	}

	return e, nil
}

// Registry returns the route registry.
func (e *MockEngine) Registry() *registry.Registry { return e.registry }

// Resolver returns the response resolver.
func (e *MockEngine) Resolver() *resolver.Resolver { return e.resolver }

// Scenarios returns the scenario manager.
func (e *MockEngine) Scenarios() *scenario.Manager { return e.scenarios }

// Flows returns the flow orchestrator.
func (e *MockEngine) Flows() *flow.Orchestrator { return e.flows }

// Recorder returns the record/playback engine, or nil when no cassette
// directory is configured.
func (e *MockEngine) Recorder() *cassette.Engine { return e.recorder }

// Generator returns the synthetic data generator.
func (e *MockEngine) Generator() *schema.Generator { return e.generator }

// Handle resolves one request through the engine. When a cassette is loaded
// in playback mode, playback is consulted first and resolution is the
// fallback for misses. Update mode always resolves so recordings refresh.
func (e *MockEngine) Handle(ctx context.Context, req *mock.Request) (*mock.Response, error) {
	if e.recorder != nil && e.recorder.Cassette() != nil && e.recorder.Mode() == cassette.ModePlayback {
		resp, err := e.recorder.Playback(req, &cassette.PlaybackOptions{AllowMissing: true})
		if err != nil {
			return nil, err
		}
		if resp != nil {
			return resp, nil
		}
	}
	return e.resolver.Handle(ctx, req)
}

// Mock registers a static JSON mock and returns its definition ID.
func (e *MockEngine) Mock(method, pattern string, status int, data any) string {
	return e.registry.Register(method, pattern, mock.StaticProducer(&mock.Response{
		Status:  status,
		Headers: map[string]string{"Content-Type": "application/json"},
		Data:    data,
	}), nil)
}

// ImportOpenAPI registers a mock per operation in an OpenAPI 3 document,
// each producing a synthesized success body.
func (e *MockEngine) ImportOpenAPI(path string) (int, error) {
	doc, err := schema.LoadSpec(path)
	if err != nil {
		return 0, err
	}
	endpoints, err := e.generator.FromOpenAPI(doc)
	if err != nil {
		return 0, err
	}
	for _, ep := range endpoints {
		e.Mock(ep.Method, ep.Path, ep.Status, ep.Body)
	}
	e.log.Info("OpenAPI spec imported", "path", path, "mocks", len(endpoints))
	return len(endpoints), nil
}

// Record switches the recorder into record mode on the named cassette.
func (e *MockEngine) Record(name string) error {
	if e.recorder == nil {
		return fmt.Errorf("no cassette directory configured")
	}
	e.recorder.SetMode(cassette.ModeRecord)
	return e.recorder.Load(name)
}

// Playback switches the recorder into playback mode on the named cassette.
func (e *MockEngine) Playback(name string) error {
	if e.recorder == nil {
		return fmt.Errorf("no cassette directory configured")
	}
	e.recorder.SetMode(cassette.ModePlayback)
	return e.recorder.Load(name)
}

// Observe captures a resolved exchange into the loaded cassette. It is a
// no-op outside record and update modes.
func (e *MockEngine) Observe(req *mock.Request, resp *mock.Response, duration time.Duration) error {
	if e.recorder == nil || e.recorder.Cassette() == nil {
		return nil
	}
	_, err := e.recorder.Record(req, resp, duration, nil)
	return err
}

// Reset returns the engine to a clean slate: the active scenario is torn
// down, all mocks and interceptors are dropped, and request history is
// cleared. Registered scenario and flow definitions survive.
func (e *MockEngine) Reset() {
	e.scenarios.Reset()
	e.resolver.ClearInterceptors()
	e.registry.Reset()
	e.resolver.History().Clear()
	e.log.Debug("engine reset")
}
