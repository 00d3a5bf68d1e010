package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mocktape/mocktape/pkg/mock"
	"github.com/mocktape/mocktape/pkg/registry"
	"github.com/mocktape/mocktape/pkg/resolver"
)

func newManager(t *testing.T) (*Manager, *resolver.Resolver, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	res := resolver.New(reg)
	res.SetClock(resolver.NewStubClock(time.Now()))
	return NewManager(res), res, reg
}

func TestActivateUnknownScenario(t *testing.T) {
	m, _, _ := newManager(t)

	err := m.Activate("nope")
	require.Error(t, err)

	var unknown *UnknownScenarioError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Name)
	assert.Contains(t, err.Error(), "nope")
}

func TestRegisterRejectsReservedNames(t *testing.T) {
	m, _, _ := newManager(t)
	assert.Error(t, m.Register("", nil))
	assert.Error(t, m.Register(registry.DefaultScenario, nil))
}

func TestActivateMaterializesResponses(t *testing.T) {
	m, res, _ := newManager(t)
	require.NoError(t, m.Register("maintenance", &Config{
		Responses: []Response{
			{Method: "GET", Pattern: "/status", Producer: mock.JSONProducer(map[string]any{"state": "down"})},
		},
	}))

	// Before activation the scenario's mocks do not exist.
	resp, err := res.Handle(context.Background(), &mock.Request{Method: "GET", URL: "/status"})
	require.NoError(t, err)
	assert.Equal(t, 404, resp.Status)

	require.NoError(t, m.Activate("maintenance"))
	assert.Equal(t, "maintenance", m.Active())

	resp, err = res.Handle(context.Background(), &mock.Request{Method: "GET", URL: "/status"})
	require.NoError(t, err)
	require.Equal(t, 200, resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "down", data["state"])
}

func TestScenarioIsolation(t *testing.T) {
	m, _, reg := newManager(t)

	// A mock registered outside any scenario must survive everything.
	reg.Register("GET", "/global", mock.JSONProducer(map[string]any{"ok": true}), nil)

	require.NoError(t, m.Register("a", &Config{
		Responses: []Response{{Method: "GET", Pattern: "/a", Producer: mock.JSONProducer(nil)}},
	}))
	require.NoError(t, m.Register("b", &Config{
		Responses: []Response{{Method: "GET", Pattern: "/b", Producer: mock.JSONProducer(nil)}},
	}))

	require.NoError(t, m.Activate("a"))
	require.NoError(t, m.Activate("b"))
	m.Deactivate()

	assert.Equal(t, registry.DefaultScenario, m.Active())
	assert.Equal(t, 1, reg.Len(), "only the global mock should remain")
	for _, def := range reg.List() {
		assert.Empty(t, def.Scenario)
	}
}

func TestActivateRunsTeardownOfPrevious(t *testing.T) {
	m, _, _ := newManager(t)

	var calls []string
	require.NoError(t, m.Register("a", &Config{
		Setup:    func(*Manager) error { calls = append(calls, "setup-a"); return nil },
		Teardown: func(*Manager) error { calls = append(calls, "teardown-a"); return nil },
	}))
	require.NoError(t, m.Register("b", &Config{
		Setup: func(*Manager) error { calls = append(calls, "setup-b"); return nil },
	}))

	require.NoError(t, m.Activate("a"))
	require.NoError(t, m.Activate("b"))

	assert.Equal(t, []string{"setup-a", "teardown-a", "setup-b"}, calls)
}

func TestScenarioInterceptorsRetiredOnSwitch(t *testing.T) {
	m, res, _ := newManager(t)

	require.NoError(t, m.Register("broken", &Config{
		Setup: func(m *Manager) error {
			m.AddInterceptor(resolver.InterceptorFunc(func(_ context.Context, _ *mock.Request) (*mock.Response, bool) {
				return &mock.Response{Status: 500}, true
			}))
			return nil
		},
	}))
	require.NoError(t, m.Register("fine", &Config{}))

	require.NoError(t, m.Activate("broken"))
	resp, err := res.Handle(context.Background(), &mock.Request{Method: "GET", URL: "/x"})
	require.NoError(t, err)
	assert.Equal(t, 500, resp.Status)

	require.NoError(t, m.Activate("fine"))
	resp, err = res.Handle(context.Background(), &mock.Request{Method: "GET", URL: "/x"})
	require.NoError(t, err)
	assert.Equal(t, 404, resp.Status, "interceptor from previous scenario leaked")
}

func TestReactivateDoesNotDuplicateMocks(t *testing.T) {
	m, _, reg := newManager(t)
	require.NoError(t, m.Register("a", &Config{
		Responses: []Response{{Method: "GET", Pattern: "/a", Producer: mock.JSONProducer(nil)}},
	}))

	require.NoError(t, m.Activate("a"))
	require.NoError(t, m.Activate("a"))
	assert.Equal(t, 1, reg.Len())
}

func TestSetupErrorWrapped(t *testing.T) {
	m, _, _ := newManager(t)
	require.NoError(t, m.Register("bad", &Config{
		Setup: func(*Manager) error { return assert.AnError },
	}))

	err := m.Activate("bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario "bad"`)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestActivationHistory(t *testing.T) {
	m, _, _ := newManager(t)
	require.NoError(t, m.Register("a", &Config{}))
	require.NoError(t, m.Register("b", &Config{}))

	require.NoError(t, m.Activate("a"))
	require.NoError(t, m.Activate("b"))
	m.Deactivate()

	acts := m.Activations()
	require.Len(t, acts, 3)
	assert.Equal(t, "a", acts[0].Name)
	assert.Equal(t, "b", acts[1].Name)
	assert.Equal(t, registry.DefaultScenario, acts[2].Name)
}

func TestActivationHistoryCapped(t *testing.T) {
	m, _, _ := newManager(t)
	require.NoError(t, m.Register("a", &Config{}))

	for i := 0; i < DefaultActivationCapacity+10; i++ {
		require.NoError(t, m.Activate("a"))
	}
	assert.Len(t, m.Activations(), DefaultActivationCapacity)
}

func TestState(t *testing.T) {
	m, _, _ := newManager(t)
	require.NoError(t, m.Register("a", &Config{}))

	st := m.State("a")
	require.NotNil(t, st)
	st["k"] = 1
	assert.Equal(t, 1, m.State("a")["k"])
	assert.Nil(t, m.State("missing"))
}
