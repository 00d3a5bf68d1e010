package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mocktape/mocktape/pkg/mock"
	"github.com/mocktape/mocktape/pkg/registry"
)

type fixedScenario string

func (s fixedScenario) Active() string { return string(s) }

func TestHandle_MatchedMock(t *testing.T) {
	reg := registry.New()
	reg.Register("GET", "/users/:id", func(_ context.Context, _ *mock.Request, params map[string]string) (*mock.Response, error) {
		return &mock.Response{
			Status: 200,
			Data:   map[string]any{"id": params["id"], "name": "Ann"},
		}, nil
	}, nil)

	r := New(reg)
	resp, err := r.Handle(context.Background(), &mock.Request{Method: "GET", URL: "/users/42"})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "42", resp.Data.(map[string]any)["id"])
}

func TestHandle_Unmatched404(t *testing.T) {
	r := New(registry.New())
	resp, err := r.Handle(context.Background(), &mock.Request{Method: "DELETE", URL: "/nope"})
	require.NoError(t, err)
	assert.Equal(t, 404, resp.Status)

	data := resp.Data.(map[string]any)
	assert.Contains(t, data["error"], "DELETE")
	assert.Contains(t, data["error"], "/nope")
}

func TestHandle_AppendsHistoryUnconditionally(t *testing.T) {
	r := New(registry.New())
	r.SetScenarioSource(fixedScenario("server_error"))

	_, err := r.Handle(context.Background(), &mock.Request{Method: "GET", URL: "/missing"})
	require.NoError(t, err)

	entries := r.History().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "/missing", entries[0].Request.URL)
	assert.Equal(t, "server_error", entries[0].Scenario)
}

func TestHandle_InterceptorShortCircuits(t *testing.T) {
	reg := registry.New()
	reg.Register("GET", "/users", mock.JSONProducer(map[string]any{"from": "registry"}), nil)

	r := New(reg)
	r.Use(InterceptorFunc(func(_ context.Context, _ *mock.Request) (*mock.Response, bool) {
		return &mock.Response{Status: 503}, true
	}))

	resp, err := r.Handle(context.Background(), &mock.Request{Method: "GET", URL: "/users"})
	require.NoError(t, err)
	assert.Equal(t, 503, resp.Status)
}

func TestHandle_InterceptorOrder(t *testing.T) {
	r := New(registry.New())
	r.Use(InterceptorFunc(func(_ context.Context, _ *mock.Request) (*mock.Response, bool) {
		return nil, false
	}))
	r.Use(InterceptorFunc(func(_ context.Context, _ *mock.Request) (*mock.Response, bool) {
		return &mock.Response{Status: 418}, true
	}))
	r.Use(InterceptorFunc(func(_ context.Context, _ *mock.Request) (*mock.Response, bool) {
		t.Fatal("later interceptor must not run after short-circuit")
		return nil, false
	}))

	resp, err := r.Handle(context.Background(), &mock.Request{Method: "GET", URL: "/x"})
	require.NoError(t, err)
	assert.Equal(t, 418, resp.Status)
}

func TestHandle_InterceptorRemoval(t *testing.T) {
	r := New(registry.New())
	remove := r.Use(InterceptorFunc(func(_ context.Context, _ *mock.Request) (*mock.Response, bool) {
		return &mock.Response{Status: 503}, true
	}))

	resp, err := r.Handle(context.Background(), &mock.Request{Method: "GET", URL: "/x"})
	require.NoError(t, err)
	assert.Equal(t, 503, resp.Status)

	remove()
	remove() // idempotent

	resp, err = r.Handle(context.Background(), &mock.Request{Method: "GET", URL: "/x"})
	require.NoError(t, err)
	assert.Equal(t, 404, resp.Status)
}

func TestCORSPreflightInterceptor(t *testing.T) {
	r := New(registry.New())
	r.Use(CORSPreflightInterceptor())

	resp, err := r.Handle(context.Background(), &mock.Request{
		Method:  "OPTIONS",
		URL:     "/users",
		Headers: map[string]string{"Origin": "http://localhost:3000"},
	})
	require.NoError(t, err)
	assert.Equal(t, 204, resp.Status)
	assert.Equal(t, "http://localhost:3000", resp.Headers["Access-Control-Allow-Origin"])

	// OPTIONS without Origin falls through to the registry (404 here).
	resp, err = r.Handle(context.Background(), &mock.Request{Method: "OPTIONS", URL: "/users"})
	require.NoError(t, err)
	assert.Equal(t, 404, resp.Status)
}

func TestForcedRateLimitInterceptor(t *testing.T) {
	reg := registry.New()
	reg.Register("GET", "/users", mock.JSONProducer(map[string]any{}), nil)

	r := New(reg)
	r.Use(ForcedRateLimitInterceptor(30))

	resp, err := r.Handle(context.Background(), &mock.Request{
		Method:  "GET",
		URL:     "/users",
		Headers: map[string]string{ForceRateLimitHeader: "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 429, resp.Status)
	assert.Equal(t, "30", resp.Headers["Retry-After"])

	// Without the flag the request resolves normally.
	resp, err = r.Handle(context.Background(), &mock.Request{Method: "GET", URL: "/users"})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
}

func TestHandle_DelayUsesInjectedClock(t *testing.T) {
	reg := registry.New()
	reg.Register("GET", "/slow", mock.StaticProducer(&mock.Response{
		Status: 200,
		Delay:  2 * time.Second,
	}), nil)

	clock := NewStubClock(time.Unix(1700000000, 0))
	r := New(reg)
	r.SetClock(clock)

	start := time.Now()
	resp, err := r.Handle(context.Background(), &mock.Request{Method: "GET", URL: "/slow"})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Less(t, elapsed, time.Second, "stub clock must not really sleep")
	assert.Equal(t, []time.Duration{2 * time.Second}, clock.Waits())
}

func TestHandle_DelayCancellable(t *testing.T) {
	reg := registry.New()
	reg.Register("GET", "/slow", mock.StaticProducer(&mock.Response{
		Status: 200,
		Delay:  time.Hour,
	}), nil)

	r := New(reg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Handle(ctx, &mock.Request{Method: "GET", URL: "/slow"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandle_ResponseHookMutates(t *testing.T) {
	reg := registry.New()
	reg.Register("GET", "/users", mock.JSONProducer(map[string]any{}), nil)

	r := New(reg)
	r.OnResponse(func(_ *mock.Request, resp *mock.Response) {
		if resp.Headers == nil {
			resp.Headers = make(map[string]string)
		}
		resp.Headers["X-Injected"] = "yes"
	})

	resp, err := r.Handle(context.Background(), &mock.Request{Method: "GET", URL: "/users"})
	require.NoError(t, err)
	assert.Equal(t, "yes", resp.Headers["X-Injected"])
}

func TestHandle_BaseURLResolution(t *testing.T) {
	reg := registry.New()
	reg.Register("GET", "/api/v1/users", mock.JSONProducer(map[string]any{"ok": true}), nil)

	r := New(reg)
	r.SetBaseURL("http://testhost/api/v1")

	resp, err := r.Handle(context.Background(), &mock.Request{Method: "GET", URL: "/users"})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
}

func TestHistory_RingCapacity(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Append(HistoryEntry{Request: &mock.Request{URL: string(rune('a' + i))}})
	}
	entries := h.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].Request.URL)
	assert.Equal(t, "e", entries[2].Request.URL)
}
