// Package scenario manages named, mutually exclusive response sets. Exactly
// one scenario is active at a time; activating another runs the previous
// scenario's teardown before the new one's setup, and materializes its
// responses into the route registry tagged with the scenario name.
package scenario

import (
	"fmt"
	"log/slog"
	mathrand "math/rand/v2"
	"sync"
	"time"

	"github.com/mocktape/mocktape/pkg/logging"
	"github.com/mocktape/mocktape/pkg/mock"
	"github.com/mocktape/mocktape/pkg/registry"
	"github.com/mocktape/mocktape/pkg/resolver"
)

// DefaultActivationCapacity bounds the activation history ring.
const DefaultActivationCapacity = 256

// Response is one route materialized into the registry while its scenario
// is active.
type Response struct {
	Method     string
	Pattern    string
	Producer   mock.Producer
	Priority   int
	Conditions []mock.Condition
}

// Config describes a scenario. Setup runs after the scenario is marked
// active and may install interceptors through the Manager; Teardown runs
// when the scenario is deactivated or replaced.
type Config struct {
	Description string
	Responses   []Response
	Setup       func(m *Manager) error
	Teardown    func(m *Manager) error
	State       map[string]any
}

// Activation is one entry in the activation history.
type Activation struct {
	Name      string
	Timestamp time.Time
}

// Manager tracks registered scenarios and the single active one. It
// implements resolver.ScenarioSource.
type Manager struct {
	registry *registry.Registry
	resolver *resolver.Resolver
	log      *slog.Logger

	mu        sync.Mutex
	rng       *mathrand.Rand
	scenarios map[string]*Config
	active    string
	cleanups  []func()
	history   []Activation
	histStart int
	histLen   int
}

// NewManager creates a Manager bound to the resolver and wires itself in as
// the resolver's scenario source.
func NewManager(res *resolver.Resolver) *Manager {
	m := &Manager{
		registry:  res.Registry(),
		resolver:  res,
		log:       logging.Nop(),
		scenarios: make(map[string]*Config),
		active:    registry.DefaultScenario,
		history:   make([]Activation, DefaultActivationCapacity),
	}
	res.SetScenarioSource(m)
	return m
}

// SetLogger sets the operational logger.
func (m *Manager) SetLogger(log *slog.Logger) {
	if log == nil {
		log = logging.Nop()
	}
	m.log = log
}

// SetRand injects a seeded random source so probabilistic scenarios are
// reproducible. A nil value falls back to the global source.
func (m *Manager) SetRand(rng *mathrand.Rand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rng = rng
}

// Active returns the name of the active scenario.
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Register stores a scenario configuration under name. Re-registering a name
// replaces the previous configuration; the change takes effect on the next
// activation.
func (m *Manager) Register(name string, cfg *Config) error {
	if name == "" || name == registry.DefaultScenario {
		return fmt.Errorf("invalid scenario name %q", name)
	}
	if cfg == nil {
		cfg = &Config{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenarios[name] = cfg
	return nil
}

// Names returns the registered scenario names in no particular order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.scenarios))
	for name := range m.scenarios {
		names = append(names, name)
	}
	return names
}

// State returns the mutable state map of a registered scenario, or nil for
// unknown names. Callers sharing a scenario's state across producers must
// serialize their own access.
func (m *Manager) State(name string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.scenarios[name]
	if !ok {
		return nil
	}
	if cfg.State == nil {
		cfg.State = make(map[string]any)
	}
	return cfg.State
}

// Activate switches to the named scenario: the previous scenario's teardown
// runs first, then the name is marked active, setup runs, and the scenario's
// responses are materialized into the registry under its tag.
func (m *Manager) Activate(name string) error {
	m.mu.Lock()
	cfg, ok := m.scenarios[name]
	if !ok {
		m.mu.Unlock()
		return &UnknownScenarioError{Name: name}
	}
	prev := m.active
	var prevCfg *Config
	if prev != name {
		prevCfg = m.scenarios[prev]
	}
	cleanups := m.cleanups
	m.cleanups = nil
	m.mu.Unlock()

	m.retire(prev, prevCfg, cleanups)
	if prev == name {
		// Re-activation: drop the previous materialization so responses
		// are not registered twice.
		m.registry.RemoveScenario(name)
	}

	m.mu.Lock()
	m.active = name
	m.appendActivation(name)
	m.mu.Unlock()

	if cfg.Setup != nil {
		if err := cfg.Setup(m); err != nil {
			return fmt.Errorf("setup for scenario %q failed: %w", name, err)
		}
	}
	for _, r := range cfg.Responses {
		m.registry.Register(r.Method, r.Pattern, r.Producer, &registry.Options{
			Scenario:   name,
			Owner:      "scenario:" + name,
			Priority:   r.Priority,
			Conditions: r.Conditions,
		})
	}

	m.log.Debug("scenario activated", "scenario", name, "previous", prev)
	return nil
}

// Deactivate runs the active scenario's teardown, removes its mocks and
// interceptors, and resets the active scenario to the default. Mocks
// registered outside any scenario are untouched.
func (m *Manager) Deactivate() {
	m.mu.Lock()
	prev := m.active
	prevCfg := m.scenarios[prev]
	cleanups := m.cleanups
	m.cleanups = nil
	m.active = registry.DefaultScenario
	m.appendActivation(registry.DefaultScenario)
	m.mu.Unlock()

	m.retire(prev, prevCfg, cleanups)
	m.log.Debug("scenario deactivated", "scenario", prev)
}

// retire tears down a previously active scenario. Teardown errors are logged
// and do not block the removal of its mocks and interceptors.
func (m *Manager) retire(name string, cfg *Config, cleanups []func()) {
	if cfg != nil && cfg.Teardown != nil {
		if err := cfg.Teardown(m); err != nil {
			m.log.Warn("scenario teardown failed", "scenario", name, "error", err)
		}
	}
	for _, cleanup := range cleanups {
		cleanup()
	}
	if name != registry.DefaultScenario {
		m.registry.RemoveScenario(name)
	}
}

// AddInterceptor installs a resolver interceptor scoped to the active
// scenario: it is removed automatically on deactivation or replacement.
// Intended for use inside a scenario's Setup.
func (m *Manager) AddInterceptor(ic resolver.Interceptor) {
	remove := m.resolver.Use(ic)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups = append(m.cleanups, remove)
}

// AddResponseHook installs a resolver response hook scoped to the active
// scenario.
func (m *Manager) AddResponseHook(h resolver.ResponseHook) {
	remove := m.resolver.OnResponse(h)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups = append(m.cleanups, remove)
}

// Float64 draws from the injected random source, falling back to the global
// one when none is set.
func (m *Manager) Float64() float64 {
	m.mu.Lock()
	rng := m.rng
	m.mu.Unlock()
	if rng != nil {
		return rng.Float64()
	}
	return mathrand.Float64()
}

// Rand returns the injected random source, which may be nil.
func (m *Manager) Rand() *mathrand.Rand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng
}

// Activations returns the activation history, oldest first.
func (m *Manager) Activations() []Activation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Activation, 0, m.histLen)
	for i := 0; i < m.histLen; i++ {
		out = append(out, m.history[(m.histStart+i)%len(m.history)])
	}
	return out
}

// Reset deactivates the active scenario and clears the activation history.
// Registered scenario configurations survive.
func (m *Manager) Reset() {
	m.Deactivate()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histStart = 0
	m.histLen = 0
}

// appendActivation records into the ring. Caller holds mu.
func (m *Manager) appendActivation(name string) {
	idx := (m.histStart + m.histLen) % len(m.history)
	m.history[idx] = Activation{Name: name, Timestamp: time.Now()}
	if m.histLen < len(m.history) {
		m.histLen++
	} else {
		m.histStart = (m.histStart + 1) % len(m.history)
	}
}
