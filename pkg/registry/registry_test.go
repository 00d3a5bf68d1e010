package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mocktape/mocktape/pkg/mock"
)

func respWithID(id string) mock.Producer {
	return mock.JSONProducer(map[string]any{"producer": id})
}

func producerID(t *testing.T, c *Candidate) string {
	t.Helper()
	require.NotNil(t, c)
	resp, err := c.Definition.Producer(context.Background(), &mock.Request{}, nil)
	require.NoError(t, err)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	return data["producer"].(string)
}

func TestRegister_MultipleDefinitionsPerRoute(t *testing.T) {
	r := New()
	r.Register("GET", "/users", respWithID("a"), nil)
	r.Register("GET", "/users", respWithID("b"), nil)
	assert.Equal(t, 2, r.Len())
}

func TestResolve_PriorityWinsRegardlessOfOrder(t *testing.T) {
	req := &mock.Request{Method: "GET", URL: "/users"}

	// Low priority first
	r := New()
	r.Register("GET", "/users", respWithID("low"), &Options{Priority: 1})
	r.Register("GET", "/users", respWithID("high"), &Options{Priority: 5})
	assert.Equal(t, "high", producerID(t, r.Resolve(req, "")))

	// High priority first
	r2 := New()
	r2.Register("GET", "/users", respWithID("high"), &Options{Priority: 5})
	r2.Register("GET", "/users", respWithID("low"), &Options{Priority: 1})
	assert.Equal(t, "high", producerID(t, r2.Resolve(req, "")))
}

func TestResolve_TieBreaksByRegistrationOrder(t *testing.T) {
	r := New()
	r.Register("GET", "/users", respWithID("first"), &Options{Priority: 3})
	r.Register("GET", "/users", respWithID("second"), &Options{Priority: 3})

	req := &mock.Request{Method: "GET", URL: "/users"}
	// Deterministic across repeated resolutions.
	for i := 0; i < 20; i++ {
		assert.Equal(t, "first", producerID(t, r.Resolve(req, "")))
	}
}

func TestResolve_ScenarioFiltering(t *testing.T) {
	r := New()
	r.Register("GET", "/users", respWithID("global"), nil)
	r.Register("GET", "/users", respWithID("errors"), &Options{Scenario: "server_error", Priority: 10})

	req := &mock.Request{Method: "GET", URL: "/users"}

	// Default scenario: the tagged definition is ignored despite its priority.
	assert.Equal(t, "global", producerID(t, r.Resolve(req, "")))

	// Under the tagged scenario it wins.
	assert.Equal(t, "errors", producerID(t, r.Resolve(req, "server_error")))
}

func TestResolve_ConditionsFilterCandidates(t *testing.T) {
	r := New()
	r.Register("POST", "/orders", respWithID("vip"), &Options{
		Priority:   10,
		Conditions: []mock.Condition{mock.HeaderCondition("X-Tier", "vip")},
	})
	r.Register("POST", "/orders", respWithID("plain"), nil)

	plain := &mock.Request{Method: "POST", URL: "/orders"}
	assert.Equal(t, "plain", producerID(t, r.Resolve(plain, "")))

	vip := &mock.Request{Method: "POST", URL: "/orders", Headers: map[string]string{"x-tier": "vip"}}
	assert.Equal(t, "vip", producerID(t, r.Resolve(vip, "")))
}

func TestMatchCandidates_PatternParams(t *testing.T) {
	r := New()
	r.Register("GET", "/users/:id", respWithID("byid"), nil)

	req := &mock.Request{Method: "GET", URL: "/users/42"}
	candidates := r.MatchCandidates(req)
	require.Len(t, candidates, 1)
	assert.Equal(t, map[string]string{"id": "42"}, candidates[0].Params)
}

func TestMatchCandidates_ExactAndPatternUnion(t *testing.T) {
	r := New()
	r.Register("GET", "/users/42", respWithID("exact"), nil)
	r.Register("GET", "/users/:id", respWithID("pattern"), nil)
	r.Register("GET", "/orders/:id", respWithID("other"), nil)

	req := &mock.Request{Method: "GET", URL: "/users/42"}
	candidates := r.MatchCandidates(req)
	assert.Len(t, candidates, 2)
}

func TestMatchCandidates_MethodMismatch(t *testing.T) {
	r := New()
	r.Register("GET", "/users", respWithID("get"), nil)

	req := &mock.Request{Method: "DELETE", URL: "/users"}
	assert.Empty(t, r.MatchCandidates(req))
}

func TestRemoveScenario_KeepsGlobals(t *testing.T) {
	r := New()
	r.Register("GET", "/users", respWithID("global"), nil)
	r.Register("GET", "/users", respWithID("a"), &Options{Scenario: "a"})
	r.Register("GET", "/orders/:id", respWithID("a2"), &Options{Scenario: "a"})

	removed := r.RemoveScenario("a")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, r.Len())

	req := &mock.Request{Method: "GET", URL: "/users"}
	assert.Equal(t, "global", producerID(t, r.Resolve(req, "")))
}

func TestRemoveOwner(t *testing.T) {
	r := New()
	r.Register("GET", "/a", respWithID("1"), &Options{Owner: "flow:checkout"})
	r.Register("GET", "/b", respWithID("2"), &Options{Owner: "flow:checkout"})
	r.Register("GET", "/c", respWithID("3"), nil)

	assert.Equal(t, 2, r.RemoveOwner("flow:checkout"))
	assert.Equal(t, 1, r.Len())
}

func TestReset(t *testing.T) {
	r := New()
	r.Register("GET", "/users", respWithID("x"), nil)
	r.Register("GET", "/users/:id", respWithID("y"), nil)
	r.Reset()
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.Resolve(&mock.Request{Method: "GET", URL: "/users"}, ""))
}

func TestResolve_Deterministic(t *testing.T) {
	build := func() *Registry {
		r := New()
		r.Register("GET", "/items/:id", respWithID("p1"), &Options{Priority: 2})
		r.Register("GET", "/items/*", respWithID("p2"), &Options{Priority: 2})
		r.Register("GET", "/items/7", respWithID("p3"), &Options{Priority: 1})
		return r
	}
	req := &mock.Request{Method: "GET", URL: "/items/7"}

	want := producerID(t, build().Resolve(req, ""))
	for i := 0; i < 10; i++ {
		assert.Equal(t, want, producerID(t, build().Resolve(req, "")))
	}
}
