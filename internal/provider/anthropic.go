package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// AnthropicProvider implements the Provider interface for the Claude API.
type AnthropicProvider struct {
	config ProviderConfig
	client *http.Client
	logger *zap.Logger
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(cfg ProviderConfig, logger *zap.Logger) *AnthropicProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.anthropic.com/v1"
	}
	return &AnthropicProvider{
		config: cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (p *AnthropicProvider) ID() string   { return p.config.ID }
func (p *AnthropicProvider) Name() string { return p.config.Name }

type anthropicRequest struct {
	Model     string         `json:"model"`
	Messages  []anthropicMsg `json:"messages"`
	System    string         `json:"system,omitempty"`
	MaxTokens int            `json:"max_tokens"`
	Stop      []string       `json:"stop_sequences,omitempty"`
}

type anthropicMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends a single completion request via the messages API.
func (p *AnthropicProvider) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	ar := &anthropicRequest{
		Model:     req.Model,
		System:    req.SystemPrompt,
		MaxTokens: req.MaxTokens,
		Stop:      req.Stop,
		Messages: []anthropicMsg{
			{Role: "user", Content: req.Prompt},
		},
	}
	if ar.MaxTokens == 0 {
		ar.MaxTokens = 4096
	}

	body, err := json.Marshal(ar)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.Endpoint+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.config.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	var claudeResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&claudeResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	content := ""
	for _, c := range claudeResp.Content {
		if c.Type == "text" {
			content += c.Text
		}
	}
	model := claudeResp.Model
	if model == "" {
		model = req.Model
	}
	return &Completion{
		ID:           claudeResp.ID,
		Model:        model,
		Content:      content,
		FinishReason: claudeResp.StopReason,
		Usage: Usage{
			PromptTokens:     claudeResp.Usage.InputTokens,
			CompletionTokens: claudeResp.Usage.OutputTokens,
			TotalTokens:      claudeResp.Usage.InputTokens + claudeResp.Usage.OutputTokens,
			Cost:             CostFor(model, claudeResp.Usage.InputTokens, claudeResp.Usage.OutputTokens),
		},
	}, nil
}

// HealthCheck verifies the provider is reachable with a one-token ping.
func (p *AnthropicProvider) HealthCheck(ctx context.Context) error {
	_, err := p.Complete(ctx, &CompletionRequest{
		Model:     "claude-3-5-haiku-20241022",
		Prompt:    "ping",
		MaxTokens: 1,
	})
	return err
}
