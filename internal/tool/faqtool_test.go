package tool

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/relaydesk/relay/internal/faq"
	"github.com/relaydesk/relay/internal/rag"
)

func faqConfig() map[string]any {
	return map[string]any{
		"faqs": []any{
			map[string]any{"question": "What time is check-in?", "answer": "3 PM", "category": "hotel"},
			map[string]any{"question": "What time is check-out?", "answer": "11 AM", "category": "hotel"},
		},
	}
}

func TestFAQToolMatch(t *testing.T) {
	ft := NewFAQTool(faq.NewMatcher(nil, zap.NewNop()), zap.NewNop())

	result, err := ft.Execute(context.Background(),
		map[string]any{"question": "what time is check in"}, faqConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := result.(map[string]any)
	if out["matched"] != true {
		t.Fatalf("expected a match, got %v", out)
	}
	if out["answer"] != "3 PM" {
		t.Errorf("expected check-in answer, got %v", out["answer"])
	}
	if out["method"] != "lexical" {
		t.Errorf("expected lexical method, got %v", out["method"])
	}
}

func TestFAQToolNoMatch(t *testing.T) {
	ft := NewFAQTool(faq.NewMatcher(nil, zap.NewNop()), zap.NewNop())

	result, err := ft.Execute(context.Background(),
		map[string]any{"question": "how do I pilot a spaceship"}, faqConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.(map[string]any)["matched"] != false {
		t.Errorf("expected no match, got %v", result)
	}
}

func TestFAQToolNoEntries(t *testing.T) {
	ft := NewFAQTool(faq.NewMatcher(nil, zap.NewNop()), zap.NewNop())
	if _, err := ft.Execute(context.Background(),
		map[string]any{"question": "anything"}, map[string]any{}); err == nil {
		t.Fatal("expected error when no FAQ entries are configured")
	}
}

func TestFAQToolBadConfig(t *testing.T) {
	ft := NewFAQTool(faq.NewMatcher(nil, zap.NewNop()), zap.NewNop())
	if _, err := ft.Execute(context.Background(),
		map[string]any{"question": "anything"},
		map[string]any{"faqs": "not a list"}); err == nil {
		t.Fatal("expected error for malformed faqs configuration")
	}
}

type fakeSearcher struct {
	got rag.SearchRequest
	err error
}

func (f *fakeSearcher) Search(_ context.Context, req rag.SearchRequest) (*rag.SearchResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &rag.SearchResponse{
		Results: []rag.Result{{ID: "doc-1", Content: "refund policy text", Similarity: 0.91}},
		Total:   1,
	}, nil
}

func TestKnowledgeSearch(t *testing.T) {
	searcher := &fakeSearcher{}
	k := NewKnowledge(searcher, zap.NewNop())

	result, err := k.Execute(context.Background(),
		map[string]any{"query": "refund policy"},
		map[string]any{"org_id": "org-1", "top_k": float64(3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := result.(map[string]any)
	if out["total"] != 1 {
		t.Errorf("expected total 1, got %v", out["total"])
	}
	if searcher.got.OrgID != "org-1" || searcher.got.TopK != 3 {
		t.Errorf("expected config forwarded, got %+v", searcher.got)
	}
}

func TestKnowledgeSearchDefaults(t *testing.T) {
	searcher := &fakeSearcher{}
	k := NewKnowledge(searcher, zap.NewNop())
	if _, err := k.Execute(context.Background(),
		map[string]any{"query": "q"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if searcher.got.TopK != 5 {
		t.Errorf("expected default top_k 5, got %d", searcher.got.TopK)
	}
}

func TestKnowledgeSearchError(t *testing.T) {
	k := NewKnowledge(&fakeSearcher{err: errors.New("qdrant down")}, zap.NewNop())
	if _, err := k.Execute(context.Background(),
		map[string]any{"query": "q"}, nil); err == nil {
		t.Fatal("expected error to propagate")
	}
}
