package tool

import (
	"context"
	"fmt"

	"github.com/relaydesk/relay/internal/rag"
	"go.uber.org/zap"
)

// KnowledgeSearcher is the knowledge-base boundary consumed by the tool.
// rag.Service implements it; tests substitute fakes.
type KnowledgeSearcher interface {
	Search(ctx context.Context, req rag.SearchRequest) (*rag.SearchResponse, error)
}

// Knowledge searches the organization's knowledge base for passages
// relevant to a query.
type Knowledge struct {
	searcher KnowledgeSearcher
	logger   *zap.Logger
}

// NewKnowledge creates the knowledge-base search tool.
func NewKnowledge(searcher KnowledgeSearcher, logger *zap.Logger) *Knowledge {
	return &Knowledge{searcher: searcher, logger: logger}
}

func (k *Knowledge) Name() string { return "knowledge_search" }

func (k *Knowledge) Description() string {
	return "Search the knowledge base for passages relevant to a query"
}

func (k *Knowledge) Validate(params map[string]any) error {
	if cfgString(params, "query") == "" {
		return fmt.Errorf("query is required")
	}
	return nil
}

func (k *Knowledge) Execute(ctx context.Context, params, config map[string]any) (any, error) {
	resp, err := k.searcher.Search(ctx, rag.SearchRequest{
		Query:         cfgString(params, "query"),
		OrgID:         cfgString(config, "org_id"),
		ProjectID:     cfgString(config, "project_id"),
		APIKey:        cfgString(config, "api_key"),
		TopK:          cfgInt(config, "top_k", 5),
		MinSimilarity: float32(cfgFloat(config, "min_similarity", 0)),
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge search: %w", err)
	}
	return map[string]any{
		"results": resp.Results,
		"total":   resp.Total,
	}, nil
}
