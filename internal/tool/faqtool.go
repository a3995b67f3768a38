package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/relaydesk/relay/internal/faq"
	"go.uber.org/zap"
)

// FAQTool answers questions from a configured FAQ list using the hybrid
// semantic/lexical matcher. The FAQ entries arrive wholesale in the merged
// tool configuration; nothing is persisted here.
type FAQTool struct {
	matcher *faq.Matcher
	logger  *zap.Logger
}

// NewFAQTool creates the FAQ tool around a matcher.
func NewFAQTool(matcher *faq.Matcher, logger *zap.Logger) *FAQTool {
	return &FAQTool{matcher: matcher, logger: logger}
}

func (f *FAQTool) Name() string { return "faq" }

func (f *FAQTool) Description() string {
	return "Look up the best-matching answer from the configured FAQ list for a user question"
}

func (f *FAQTool) Validate(params map[string]any) error {
	if cfgString(params, "question") == "" {
		return fmt.Errorf("question is required")
	}
	return nil
}

func (f *FAQTool) Execute(ctx context.Context, params, config map[string]any) (any, error) {
	entries, err := faqEntries(config)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no FAQ entries configured")
	}

	result := f.matcher.Match(ctx, cfgString(params, "question"), entries, faq.MatchConfig{
		Threshold: cfgFloat(config, "threshold", 0),
		Language:  cfgString(config, "language"),
	})

	out := map[string]any{
		"method":     result.Method,
		"candidates": result.Candidates,
	}
	if result.Matched != nil {
		out["matched"] = true
		out["question"] = result.Matched.Question
		out["answer"] = result.Matched.Answer
		out["category"] = result.Matched.Category
	} else {
		out["matched"] = false
	}
	return out, nil
}

// faqEntries decodes the configured entry list. Round-tripping through JSON
// tolerates both typed entries and raw map configuration.
func faqEntries(config map[string]any) ([]faq.Entry, error) {
	raw, ok := config["faqs"]
	if !ok {
		return nil, nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid faqs configuration: %w", err)
	}
	var entries []faq.Entry
	if err := json.Unmarshal(encoded, &entries); err != nil {
		return nil, fmt.Errorf("invalid faqs configuration: %w", err)
	}
	return entries, nil
}
