package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ziadkadry99/docchat/internal/retry"
)

// MockProvider is a test provider that records calls and returns canned responses.
type MockProvider struct {
	mu       sync.Mutex
	Calls    []CompletionRequest
	Response *CompletionResponse
	Errs     []error // returned in order before Response
	ProvName string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		ProvName: name,
		Response: &CompletionResponse{
			Content:      "mock response",
			InputTokens:  10,
			OutputTokens: 20,
			Model:        "mock-model",
			FinishReason: "stop",
		},
	}
}

func (m *MockProvider) Name() string {
	return m.ProvName
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if len(m.Errs) > 0 {
		err := m.Errs[0]
		m.Errs = m.Errs[1:]
		return nil, err
	}
	return m.Response, nil
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// --- Tests ---

func chatServer(t *testing.T, handler func(body map[string]any) (int, string)) (*httptest.Server, *http.Request) {
	t.Helper()
	var last http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last = *r
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		status, resp := handler(body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

const okCompletion = `{"id":"1","object":"chat.completion","model":"gpt-4o",
	"choices":[{"index":0,"message":{"role":"assistant","content":"Refunds are processed within 14 days."},"finish_reason":"stop"}],
	"usage":{"prompt_tokens":12,"completion_tokens":7,"total_tokens":19}}`

func TestAzureProviderSendsDeploymentAndTemperature(t *testing.T) {
	var gotBody map[string]any
	srv, last := chatServer(t, func(body map[string]any) (int, string) {
		gotBody = body
		return http.StatusOK, okCompletion
	})

	p := NewAzureProvider("chat-key", ModelConfig{
		Endpoint:    srv.URL,
		Deployment:  "chat-deploy",
		APIVersion:  "2025-01-01-preview",
		Temperature: 0.2,
		MaxTokens:   256,
	})

	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleSystem, Content: "be brief"}, {Role: RoleUser, Content: "refunds?"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "Refunds are processed within 14 days." {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 7 {
		t.Errorf("unexpected usage: %+v", resp)
	}
	if !strings.Contains(last.URL.Path, "/openai/deployments/chat-deploy/chat/completions") {
		t.Errorf("unexpected path %q", last.URL.Path)
	}
	if v := last.URL.Query().Get("api-version"); v != "2025-01-01-preview" {
		t.Errorf("unexpected api-version %q", v)
	}
	if k := last.Header.Get("api-key"); k != "chat-key" {
		t.Errorf("unexpected api-key header %q", k)
	}
	if temp, _ := gotBody["temperature"].(float64); temp < 0.19 || temp > 0.21 {
		t.Errorf("expected temperature 0.2, got %v", gotBody["temperature"])
	}
	if msgs, _ := gotBody["messages"].([]any); len(msgs) != 2 {
		t.Errorf("expected 2 messages, got %v", gotBody["messages"])
	}
}

func TestRetryingProviderRetriesServerErrorOnce(t *testing.T) {
	var calls atomic.Int32
	srv, _ := chatServer(t, func(map[string]any) (int, string) {
		if calls.Add(1) == 1 {
			return http.StatusServiceUnavailable, `{"error":{"message":"overloaded","type":"server_error"}}`
		}
		return http.StatusOK, okCompletion
	})

	p := NewRetryingProvider(
		NewOpenAIProvider("k", ModelConfig{Endpoint: srv.URL, Deployment: "gpt-4o"}),
		retry.Policy{Retries: 1, Delay: time.Millisecond},
	)
	resp, err := p.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content == "" {
		t.Error("expected content after retry")
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestRetryingProviderDoesNotRetryAuthErrors(t *testing.T) {
	var calls atomic.Int32
	srv, _ := chatServer(t, func(map[string]any) (int, string) {
		calls.Add(1)
		return http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`
	})

	p := NewRetryingProvider(
		NewOpenAIProvider("k", ModelConfig{Endpoint: srv.URL, Deployment: "gpt-4o"}),
		retry.Policy{Retries: 1, Delay: time.Millisecond},
	)
	_, err := p.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(&openai.APIError{HTTPStatusCode: 429}) {
		t.Error("429 should be transient")
	}
	if IsTransient(&openai.APIError{HTTPStatusCode: 400}) {
		t.Error("400 should not be transient")
	}
	if !IsTransient(&openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}) {
		t.Error("502 request error should be transient")
	}
	if IsTransient(errors.New("other")) {
		t.Error("plain errors should not be transient")
	}
}

func TestFactoryReturnsErrorForMissingAPIKey(t *testing.T) {
	for _, kind := range []string{"azure", "openai"} {
		_, err := NewProvider(Options{Kind: kind, Model: ModelConfig{Endpoint: "https://x", Deployment: "d"}})
		if err == nil {
			t.Errorf("expected error for provider %q with missing API key", kind)
		}
	}
}

func TestFactoryReturnsErrorForUnknownProvider(t *testing.T) {
	_, err := NewProvider(Options{Kind: "unknown", APIKey: "k"})
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestFactoryRequiresAzureEndpoint(t *testing.T) {
	_, err := NewProvider(Options{Kind: "azure", APIKey: "k", Model: ModelConfig{Deployment: "d"}})
	if err == nil {
		t.Error("expected error for azure provider without endpoint")
	}
}

func TestFactoryWrapsProvider(t *testing.T) {
	p, err := NewProvider(Options{Kind: "azure", APIKey: "k", Model: ModelConfig{Endpoint: "https://x", Deployment: "d"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*RetryingProvider); !ok {
		t.Errorf("expected *RetryingProvider, got %T", p)
	}
	if p.Name() != "azure" {
		t.Errorf("expected name 'azure', got %q", p.Name())
	}

	p, err = NewProvider(Options{Kind: "openai", APIKey: "k", RequestsPerMinute: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*RateLimitedProvider); !ok {
		t.Errorf("expected *RateLimitedProvider, got %T", p)
	}
}

func TestRateLimiterPassesThrough(t *testing.T) {
	mock := NewMockProvider("test")
	rl := NewRateLimitedProvider(mock, 60)

	resp, err := rl.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "mock response" {
		t.Errorf("expected 'mock response', got %q", resp.Content)
	}
	if rl.Name() != "test" {
		t.Errorf("expected name 'test', got %q", rl.Name())
	}
}

func TestRateLimiterLimitsRequests(t *testing.T) {
	mock := NewMockProvider("test")
	// Allow only 2 requests per minute.
	rl := NewRateLimitedProvider(mock, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	req := CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hello"}}}

	// First two should succeed immediately.
	for i := 0; i < 2; i++ {
		if _, err := rl.Complete(ctx, req); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}

	// Third should block and eventually fail due to context timeout.
	if _, err := rl.Complete(ctx, req); err == nil {
		t.Error("expected error due to rate limiting + context timeout")
	}
	if mock.CallCount() != 2 {
		t.Errorf("expected 2 calls to reach the provider, got %d", mock.CallCount())
	}
}
