package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/relaydesk/relay/internal/provider"
	"go.uber.org/zap"
)

const (
	defaultSummarizeMinLength = 500
	defaultSummarizeMaxTokens = 150
	fallbackSnippetLength     = 200
)

// Summarizer produces a bounded-length synthesis of a large tool result.
type Summarizer interface {
	Summarize(ctx context.Context, content, focus string, maxTokens int) (string, error)
}

// maybePostProcess applies result summarization for the API caller when the
// merged configuration enables it and the serialized result is large
// enough. Results below the size threshold pass through unchanged.
func (r *Registry) maybePostProcess(ctx context.Context, name string, merged, params map[string]any, result any) any {
	if name != APICallerName || !cfgBool(merged, "summarize_results") {
		return result
	}

	serialized, err := json.Marshal(result)
	if err != nil {
		return result
	}
	minLength := cfgInt(merged, "summarize_min_length", defaultSummarizeMinLength)
	if len(serialized) < minLength {
		return result
	}

	focus := cfgString(merged, "summarize_focus")
	maxTokens := cfgInt(merged, "summarize_max_tokens", defaultSummarizeMaxTokens)

	// Per-endpoint overrides win over the tool-level settings.
	if endpointName := cfgString(params, "endpoint_name"); endpointName != "" {
		if ep := cfgMap(cfgMap(merged, "endpoints"), endpointName); ep != nil {
			if override := cfgMap(ep, "summarize"); override != nil {
				if f := cfgString(override, "focus"); f != "" {
					focus = f
				}
				maxTokens = cfgInt(override, "max_tokens", maxTokens)
			}
		}
	}

	summary, serr := r.summarize(ctx, string(serialized), focus, maxTokens)
	if serr != nil {
		r.logger.Warn("result summarization failed, using deterministic fallback",
			zap.String("tool", name), zap.Error(serr))
		summary = deterministicSummary(result, serialized)
	}

	return map[string]any{
		"summarized":    true,
		"summary":       summary,
		"original_size": len(serialized),
	}
}

func (r *Registry) summarize(ctx context.Context, content, focus string, maxTokens int) (string, error) {
	if r.summarizer == nil {
		return "", fmt.Errorf("no summarizer configured")
	}
	return r.summarizer.Summarize(ctx, content, focus, maxTokens)
}

// deterministicSummary is the non-LLM fallback: the status line plus the
// leading slice of the serialized data.
func deterministicSummary(result any, serialized []byte) string {
	status := ""
	if m, ok := result.(map[string]any); ok {
		if code := cfgInt(m, "status_code", 0); code != 0 {
			status = fmt.Sprintf("HTTP %d. ", code)
		}
	}
	snippet := string(serialized)
	if len(snippet) > fallbackSnippetLength {
		snippet = snippet[:fallbackSnippetLength] + "..."
	}
	return status + snippet
}

// LLMSummarizer implements Summarizer over the provider router.
type LLMSummarizer struct {
	router *provider.Router
	model  string
	logger *zap.Logger
}

// NewLLMSummarizer creates a summarizer that uses the given model through
// the provider router's default binding.
func NewLLMSummarizer(router *provider.Router, model string, logger *zap.Logger) *LLMSummarizer {
	return &LLMSummarizer{router: router, model: model, logger: logger}
}

// Summarize asks the model for a bounded synthesis of the raw result.
func (s *LLMSummarizer) Summarize(ctx context.Context, content, focus string, maxTokens int) (string, error) {
	if s.model == "" {
		return "", fmt.Errorf("summarize: no model configured")
	}
	prompt := "Summarize the following API response concisely for an assistant that will act on it."
	if focus != "" {
		prompt += " Focus on: " + focus + "."
	}
	prompt += "\n\n" + content

	comp, err := s.router.Route(ctx, "summarizer", &provider.CompletionRequest{
		Model:     s.model,
		Prompt:    prompt,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return comp.Content, nil
}
