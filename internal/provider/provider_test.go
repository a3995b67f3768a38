package provider

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestCostForKnownModels(t *testing.T) {
	cases := []struct {
		model      string
		prompt     int
		completion int
		want       float64
	}{
		{"gpt-4o-mini", 1_000_000, 0, 0.15},
		{"gpt-4o", 1_000_000, 1_000_000, 12.50},
		{"gpt-4o-mini-2024-07-18", 1_000_000, 0, 0.15}, // longest prefix wins
		{"claude-3-5-sonnet-20241022", 0, 1_000_000, 15.00},
		{"some-unknown-model", 1_000_000, 1_000_000, 4.00},
	}
	for _, tc := range cases {
		got := CostFor(tc.model, tc.prompt, tc.completion)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("CostFor(%s) = %f, want %f", tc.model, got, tc.want)
		}
	}
}

func TestOpenAIComplete(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "cmpl-1",
			"model": "gpt-4o-mini",
			"choices": [{"message": {"role": "assistant", "content": "hello"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 1000000, "completion_tokens": 0, "total_tokens": 1000000}
		}`))
	}))
	defer ts.Close()

	p := NewOpenAIProvider(ProviderConfig{
		ID: "oai", Name: "openai", Endpoint: ts.URL, APIKey: "sk-test",
	}, zap.NewNop())

	comp, err := p.Complete(context.Background(), &CompletionRequest{
		Model:        "gpt-4o-mini",
		SystemPrompt: "be brief",
		Prompt:       "say hello",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if comp.Content != "hello" {
		t.Errorf("expected content hello, got %q", comp.Content)
	}
	if math.Abs(comp.Usage.Cost-0.15) > 1e-9 {
		t.Errorf("expected cost 0.15 for 1M prompt tokens, got %f", comp.Usage.Cost)
	}
}

func TestOpenAICompleteAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer ts.Close()

	p := NewOpenAIProvider(ProviderConfig{ID: "oai", Endpoint: ts.URL}, zap.NewNop())
	_, err := p.Complete(context.Background(), &CompletionRequest{Model: "gpt-4o", Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestAnthropicComplete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "sk-ant" {
			t.Errorf("expected x-api-key header, got %q", r.Header.Get("x-api-key"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg-1",
			"model": "claude-3-5-haiku-20241022",
			"content": [{"type": "text", "text": "hi there"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 500000, "output_tokens": 0}
		}`))
	}))
	defer ts.Close()

	p := NewAnthropicProvider(ProviderConfig{
		ID: "ant", Name: "anthropic", Endpoint: ts.URL, APIKey: "sk-ant",
	}, zap.NewNop())

	comp, err := p.Complete(context.Background(), &CompletionRequest{
		Model:  "claude-3-5-haiku-20241022",
		Prompt: "hi",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if comp.Content != "hi there" {
		t.Errorf("expected content, got %q", comp.Content)
	}
	if math.Abs(comp.Usage.Cost-0.40) > 1e-9 {
		t.Errorf("expected cost 0.40 for 500k input tokens, got %f", comp.Usage.Cost)
	}
}

type stubProvider struct {
	id  string
	err error
}

func (s *stubProvider) ID() string   { return s.id }
func (s *stubProvider) Name() string { return s.id }

func (s *stubProvider) Complete(context.Context, *CompletionRequest) (*Completion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Completion{Content: "from " + s.id}, nil
}

func (s *stubProvider) HealthCheck(context.Context) error { return nil }

func TestRouterBindingAndFallback(t *testing.T) {
	router := NewRouter(zap.NewNop())
	router.Register(&stubProvider{id: "primary", err: errors.New("down")})
	router.Register(&stubProvider{id: "backup"})
	router.Bind("agent-1", "primary")
	router.SetFallbacks("agent-1", []string{"backup"})

	comp, err := router.Route(context.Background(), "agent-1", &CompletionRequest{Prompt: "hi"})
	if err != nil {
		t.Fatalf("expected fallback to succeed: %v", err)
	}
	if comp.Content != "from backup" {
		t.Errorf("expected backup response, got %q", comp.Content)
	}
}

func TestRouterDefaultProvider(t *testing.T) {
	router := NewRouter(zap.NewNop())
	router.Register(&stubProvider{id: "first"})
	router.Register(&stubProvider{id: "second"})

	// Unbound agents use the first registered provider.
	comp, err := router.Route(context.Background(), "unbound", &CompletionRequest{Prompt: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if comp.Content != "from first" {
		t.Errorf("expected first provider, got %q", comp.Content)
	}

	router.SetDefault("second")
	comp, err = router.Route(context.Background(), "unbound", &CompletionRequest{Prompt: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if comp.Content != "from second" {
		t.Errorf("expected new default provider, got %q", comp.Content)
	}
}

func TestRouterAllFailed(t *testing.T) {
	router := NewRouter(zap.NewNop())
	router.Register(&stubProvider{id: "only", err: errors.New("down")})

	_, err := router.Route(context.Background(), "agent-1", &CompletionRequest{Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error when all providers fail")
	}
}

func TestRouterNoProvider(t *testing.T) {
	router := NewRouter(zap.NewNop())
	_, err := router.Route(context.Background(), "agent-1", &CompletionRequest{Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error with no providers registered")
	}
}

func TestUsageAdd(t *testing.T) {
	var total Usage
	total.Add(Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15, Cost: 0.01})
	total.Add(Usage{PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30, Cost: 0.02})
	if total.TotalTokens != 45 || total.PromptTokens != 30 || total.CompletionTokens != 15 {
		t.Errorf("unexpected totals: %+v", total)
	}
	if math.Abs(total.Cost-0.03) > 1e-9 {
		t.Errorf("expected cost 0.03, got %f", total.Cost)
	}
}
