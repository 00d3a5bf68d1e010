package resolver

import (
	"context"
	"strconv"
	"strings"

	"github.com/mocktape/mocktape/pkg/mock"
)

// Interceptor runs before route resolution. Returning (resp, true)
// short-circuits: the response is returned without consulting the registry.
type Interceptor interface {
	Intercept(ctx context.Context, req *mock.Request) (*mock.Response, bool)
}

// InterceptorFunc adapts a function to the Interceptor interface.
type InterceptorFunc func(ctx context.Context, req *mock.Request) (*mock.Response, bool)

// Intercept implements Interceptor.
func (f InterceptorFunc) Intercept(ctx context.Context, req *mock.Request) (*mock.Response, bool) {
	return f(ctx, req)
}

// ResponseHook runs after a response has been produced and may mutate it
// (scenario latency injection, header stamping). Hooks never short-circuit.
type ResponseHook func(req *mock.Request, resp *mock.Response)

// ForceRateLimitHeader is the request flag that triggers the simulated
// rate-limit interceptor.
const ForceRateLimitHeader = "X-Force-Rate-Limit"

// CORSPreflightInterceptor answers OPTIONS requests carrying an Origin header
// with a simulated preflight response.
func CORSPreflightInterceptor() Interceptor {
	return InterceptorFunc(func(_ context.Context, req *mock.Request) (*mock.Response, bool) {
		if !strings.EqualFold(req.Method, "OPTIONS") {
			return nil, false
		}
		origin := req.Header("Origin")
		if origin == "" {
			return nil, false
		}
		return &mock.Response{
			Status:     204,
			StatusText: "No Content",
			Headers: map[string]string{
				"Access-Control-Allow-Origin":  origin,
				"Access-Control-Allow-Methods": "GET, POST, PUT, PATCH, DELETE, OPTIONS",
				"Access-Control-Allow-Headers": "Content-Type, Authorization",
				"Access-Control-Max-Age":       "86400",
			},
		}, true
	})
}

// ForcedRateLimitInterceptor returns a 429 whenever the request carries the
// ForceRateLimitHeader flag. retryAfter is expressed in seconds.
func ForcedRateLimitInterceptor(retryAfter int) Interceptor {
	if retryAfter <= 0 {
		retryAfter = 60
	}
	return InterceptorFunc(func(_ context.Context, req *mock.Request) (*mock.Response, bool) {
		if req.Header(ForceRateLimitHeader) == "" {
			return nil, false
		}
		return &mock.Response{
			Status:     429,
			StatusText: "Too Many Requests",
			Headers: map[string]string{
				"Content-Type": "application/json",
				"Retry-After":  strconv.Itoa(retryAfter),
			},
			Data: map[string]any{
				"error":      "rate limit exceeded",
				"retryAfter": retryAfter,
			},
		}, true
	})
}
