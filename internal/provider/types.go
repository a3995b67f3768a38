package provider

import (
	"context"
	"time"
)

// Provider defines the interface for LLM completion providers.
type Provider interface {
	ID() string
	Name() string
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)
	HealthCheck(ctx context.Context) error
}

// CompletionRequest represents a single completion request. The reasoning
// engine builds one self-contained prompt per iteration, so the request is
// prompt-oriented rather than multi-turn.
type CompletionRequest struct {
	Model        string   `json:"model"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Prompt       string   `json:"prompt"`
	Temperature  float64  `json:"temperature,omitempty"`
	MaxTokens    int      `json:"max_tokens,omitempty"`
	Stop         []string `json:"stop,omitempty"`
}

// Completion represents a provider response.
type Completion struct {
	ID           string `json:"id"`
	Model        string `json:"model"`
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason"`
	Usage        Usage  `json:"usage"`
}

// Usage tracks token consumption and monetary cost for one call.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost"`
}

// Add accumulates another call's usage into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
	u.Cost += other.Cost
}

// ProviderConfig holds configuration for a provider instance.
type ProviderConfig struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Name     string            `json:"name"`
	Endpoint string            `json:"endpoint"`
	APIKey   string            `json:"api_key"`
	Models   []string          `json:"models,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
	Timeout  time.Duration     `json:"timeout,omitempty"`
}
