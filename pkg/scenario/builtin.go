package scenario

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mocktape/mocktape/internal/id"
	"github.com/mocktape/mocktape/pkg/mock"
	"github.com/mocktape/mocktape/pkg/resolver"
	"github.com/mocktape/mocktape/pkg/schema"
)

// Built-in scenario names.
const (
	Success             = "success"
	SlowSuccess         = "slow_success"
	ServerError         = "server_error"
	NetworkError        = "network_error"
	AuthError           = "auth_error"
	ValidationError     = "validation_error"
	RateLimit           = "rate_limit"
	IntermittentFailure = "intermittent_failure"
	EmptyResponses      = "empty_responses"
	LargePayload        = "large_payload"
	UserJourney         = "user_journey"
)

// Tunables for the built-in catalog.
const (
	SlowLatency         = 800 * time.Millisecond
	NetworkErrorDelay   = 30 * time.Second
	RateLimitRetryAfter = "60"
	FailureRate         = 0.3
	LargePayloadCount   = 100
)

// journeySigningKey signs user_journey session tokens. The scenario is a
// network double for tests, not an authentication system.
var journeySigningKey = []byte("mocktape-journey-secret")

// RegisterBuiltins installs the built-in scenario catalog on the manager.
// Each scenario stays dormant until activated.
func RegisterBuiltins(m *Manager) {
	m.Register(Success, &Config{
		Description: "happy path with no injected latency or failures",
	})

	m.Register(SlowSuccess, &Config{
		Description: "successful responses with injected latency",
		Setup: func(m *Manager) error {
			m.AddResponseHook(func(_ *mock.Request, resp *mock.Response) {
				resp.Delay += SlowLatency
			})
			return nil
		},
	})

	m.Register(ServerError, &Config{
		Description: "every request fails with a 500",
		Setup: func(m *Manager) error {
			m.AddInterceptor(resolver.InterceptorFunc(func(_ context.Context, _ *mock.Request) (*mock.Response, bool) {
				return &mock.Response{
					Status:     500,
					StatusText: "Internal Server Error",
					Headers:    map[string]string{"Content-Type": "application/json"},
					Data:       map[string]any{"error": "internal server error"},
				}, true
			}))
			return nil
		},
	})

	m.Register(NetworkError, &Config{
		Description: "connection-level failure: status 0 after a long stall",
		Setup: func(m *Manager) error {
			m.AddInterceptor(resolver.InterceptorFunc(func(_ context.Context, _ *mock.Request) (*mock.Response, bool) {
				return &mock.Response{
					Status: 0,
					Data:   map[string]any{"error": "network error"},
					Delay:  NetworkErrorDelay,
				}, true
			}))
			return nil
		},
	})

	m.Register(AuthError, &Config{
		Description: "every request is rejected as unauthenticated",
		Setup: func(m *Manager) error {
			m.AddInterceptor(resolver.InterceptorFunc(func(_ context.Context, _ *mock.Request) (*mock.Response, bool) {
				return &mock.Response{
					Status:     401,
					StatusText: "Unauthorized",
					Headers: map[string]string{
						"Content-Type":     "application/json",
						"WWW-Authenticate": "Bearer",
					},
					Data: map[string]any{"error": "authentication required"},
				}, true
			}))
			return nil
		},
	})

	m.Register(ValidationError, &Config{
		Description: "create requests fail with 400, updates with 422",
		Setup: func(m *Manager) error {
			m.AddInterceptor(resolver.InterceptorFunc(func(_ context.Context, req *mock.Request) (*mock.Response, bool) {
				switch strings.ToUpper(req.Method) {
				case "POST":
					return validationFailure(400, "Bad Request"), true
				case "PUT", "PATCH":
					return validationFailure(422, "Unprocessable Entity"), true
				}
				return nil, false
			}))
			return nil
		},
	})

	m.Register(RateLimit, &Config{
		Description: "every request is rejected as rate limited",
		Setup: func(m *Manager) error {
			m.AddInterceptor(resolver.InterceptorFunc(func(_ context.Context, _ *mock.Request) (*mock.Response, bool) {
				return &mock.Response{
					Status:     429,
					StatusText: "Too Many Requests",
					Headers: map[string]string{
						"Content-Type": "application/json",
						"Retry-After":  RateLimitRetryAfter,
					},
					Data: map[string]any{"error": "rate limit exceeded"},
				}, true
			}))
			return nil
		},
	})

	m.Register(IntermittentFailure, &Config{
		Description: "a fraction of requests fail with a 500",
		Setup: func(m *Manager) error {
			m.AddInterceptor(resolver.InterceptorFunc(func(_ context.Context, _ *mock.Request) (*mock.Response, bool) {
				if m.Float64() < FailureRate {
					return &mock.Response{
						Status:     500,
						StatusText: "Internal Server Error",
						Headers:    map[string]string{"Content-Type": "application/json"},
						Data:       map[string]any{"error": "intermittent failure"},
					}, true
				}
				return nil, false
			}))
			return nil
		},
	})

	m.Register(EmptyResponses, &Config{
		Description: "successful responses carry empty collections and objects",
		Setup: func(m *Manager) error {
			m.AddResponseHook(func(_ *mock.Request, resp *mock.Response) {
				if resp.Status >= 400 {
					return
				}
				switch resp.Data.(type) {
				case []any:
					resp.Data = []any{}
				case map[string]any:
					resp.Data = map[string]any{}
				}
			})
			return nil
		},
	})

	m.Register(LargePayload, &Config{
		Description: "bulk synthetic dataset on GET /bulk",
		Responses: []Response{
			{
				Method:   "GET",
				Pattern:  "/bulk",
				Producer: largePayloadProducer(m),
			},
		},
	})

	m.Register(UserJourney, journeyConfig())
}

func validationFailure(status int, text string) *mock.Response {
	return &mock.Response{
		Status:     status,
		StatusText: text,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Data: map[string]any{
			"error":  "validation failed",
			"fields": []any{map[string]any{"field": "name", "message": "is required"}},
		},
	}
}

func largePayloadProducer(m *Manager) mock.Producer {
	itemCount := LargePayloadCount
	itemNode := &schema.Node{
		Type:     "array",
		MinItems: &itemCount,
		MaxItems: &itemCount,
		Items: &schema.Node{
			Type: "object",
			Properties: map[string]*schema.Node{
				"id":        {Type: "string", Format: "uuid"},
				"name":      {Type: "string"},
				"email":     {Type: "string", Format: "email"},
				"createdAt": {Type: "string", Format: "date-time"},
				"active":    {Type: "boolean"},
				"score":     {Type: "number"},
			},
		},
	}
	return func(_ context.Context, _ *mock.Request, _ map[string]string) (*mock.Response, error) {
		gen := schema.NewGenerator(schema.NewFaker(m.Rand()), schema.WithRand(m.Rand()))
		return &mock.Response{
			Status:     200,
			StatusText: "OK",
			Headers:    map[string]string{"Content-Type": "application/json"},
			Data:       gen.Generate(itemNode),
		}, nil
	}
}

// journeyConfig builds the stateful register/login/profile flow. Accounts
// and sessions live in closure maps for the lifetime of the registration.
func journeyConfig() *Config {
	var mu sync.Mutex
	users := make(map[string]map[string]any) // email -> account
	sessions := make(map[string]string)      // token -> email

	register := func(_ context.Context, req *mock.Request, _ map[string]string) (*mock.Response, error) {
		body, _ := req.Data.(map[string]any)
		email, _ := body["email"].(string)
		if email == "" {
			return &mock.Response{
				Status:  400,
				Headers: map[string]string{"Content-Type": "application/json"},
				Data:    map[string]any{"error": "email is required"},
			}, nil
		}
		account := map[string]any{
			"id":    id.UUID(),
			"email": email,
			"name":  body["name"],
		}
		mu.Lock()
		users[email] = account
		mu.Unlock()
		return &mock.Response{
			Status:     201,
			StatusText: "Created",
			Headers:    map[string]string{"Content-Type": "application/json"},
			Data:       map[string]any{"id": account["id"], "email": email},
		}, nil
	}

	login := func(_ context.Context, req *mock.Request, _ map[string]string) (*mock.Response, error) {
		body, _ := req.Data.(map[string]any)
		email, _ := body["email"].(string)
		mu.Lock()
		_, known := users[email]
		mu.Unlock()
		if !known {
			return &mock.Response{
				Status:     401,
				StatusText: "Unauthorized",
				Headers:    map[string]string{"Content-Type": "application/json"},
				Data:       map[string]any{"error": "unknown account"},
			}, nil
		}
		now := time.Now()
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": email,
			"iat": now.Unix(),
			"exp": now.Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString(journeySigningKey)
		if err != nil {
			return nil, err
		}
		mu.Lock()
		sessions[signed] = email
		mu.Unlock()
		return &mock.Response{
			Status:     200,
			StatusText: "OK",
			Headers:    map[string]string{"Content-Type": "application/json"},
			Data:       map[string]any{"token": signed},
		}, nil
	}

	profile := func(_ context.Context, req *mock.Request, _ map[string]string) (*mock.Response, error) {
		token := strings.TrimPrefix(req.Header("Authorization"), "Bearer ")
		mu.Lock()
		email, ok := sessions[token]
		account := users[email]
		mu.Unlock()
		if !ok {
			return &mock.Response{
				Status:     401,
				StatusText: "Unauthorized",
				Headers:    map[string]string{"Content-Type": "application/json"},
				Data:       map[string]any{"error": "invalid or missing token"},
			}, nil
		}
		return &mock.Response{
			Status:     200,
			StatusText: "OK",
			Headers:    map[string]string{"Content-Type": "application/json"},
			Data:       account,
		}, nil
	}

	return &Config{
		Description: "stateful register, login, profile journey",
		Responses: []Response{
			{Method: "POST", Pattern: "/register", Producer: register},
			{Method: "POST", Pattern: "/login", Producer: login},
			{Method: "GET", Pattern: "/profile", Producer: profile},
		},
		Teardown: func(_ *Manager) error {
			mu.Lock()
			defer mu.Unlock()
			users = make(map[string]map[string]any)
			sessions = make(map[string]string)
			return nil
		},
	}
}
