package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/relaydesk/relay/internal/embedding"
	"github.com/relaydesk/relay/internal/vectorstore"
	"go.uber.org/zap"
)

// DefaultCollection is the Qdrant collection used when none is configured.
const DefaultCollection = "knowledge"

// Service answers knowledge-base queries by embedding the query text and
// searching the vector store, scoped to an organization and project.
type Service struct {
	embedder   embedding.Provider
	qdrant     *vectorstore.Client
	collection string
	logger     *zap.Logger
}

// NewService creates a knowledge-base search service.
func NewService(embedder embedding.Provider, qdrant *vectorstore.Client, collection string, logger *zap.Logger) *Service {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Service{embedder: embedder, qdrant: qdrant, collection: collection, logger: logger}
}

// Init ensures the backing collection exists.
func (s *Service) Init(ctx context.Context) error {
	dim := uint64(s.embedder.Dimension())
	if dim == 0 {
		dim = 1024
	}
	if err := s.qdrant.EnsureCollection(ctx, s.collection, dim); err != nil {
		return fmt.Errorf("init collection %s: %w", s.collection, err)
	}
	return nil
}

// SearchRequest describes one knowledge-base query. APIKey is carried for
// remote knowledge backends; the local Qdrant backend does not use it.
type SearchRequest struct {
	Query         string  `json:"query"`
	OrgID         string  `json:"org_id,omitempty"`
	ProjectID     string  `json:"project_id,omitempty"`
	APIKey        string  `json:"api_key,omitempty"`
	TopK          int     `json:"top_k,omitempty"`
	MinSimilarity float32 `json:"min_similarity,omitempty"`
}

// Result is a single knowledge-base hit.
type Result struct {
	ID         string            `json:"id"`
	Content    string            `json:"content"`
	Similarity float32           `json:"similarity"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SearchResponse holds the ranked hits and the total count before limiting.
type SearchResponse struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
}

// Search embeds the query and returns the most similar documents for the
// given org/project scope, filtered by the minimum similarity.
func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("empty query")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = 5
	}

	vectors, err := s.embedder.Embed(ctx, []string{req.Query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return &SearchResponse{}, nil
	}

	filter := map[string]string{}
	if req.OrgID != "" {
		filter["org_id"] = req.OrgID
	}
	if req.ProjectID != "" {
		filter["project_id"] = req.ProjectID
	}

	hits, err := s.qdrant.Search(ctx, s.collection, vectors[0], uint64(topK), filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	resp := &SearchResponse{Total: len(hits)}
	for _, h := range hits {
		if h.Score < req.MinSimilarity {
			continue
		}
		meta := make(map[string]string)
		for k, v := range h.Payload {
			if k == "content" {
				continue
			}
			meta[k] = v
		}
		resp.Results = append(resp.Results, Result{
			ID:         h.ID,
			Content:    h.Payload["content"],
			Similarity: h.Score,
			Metadata:   meta,
		})
	}

	s.logger.Debug("knowledge search complete",
		zap.String("org", req.OrgID),
		zap.String("project", req.ProjectID),
		zap.Int("hits", len(resp.Results)))
	return resp, nil
}

// Index embeds content and upserts it into the knowledge collection.
func (s *Service) Index(ctx context.Context, orgID, projectID, content string, metadata map[string]string) (string, error) {
	vectors, err := s.embedder.Embed(ctx, []string{content})
	if err != nil {
		return "", fmt.Errorf("embed content: %w", err)
	}
	if len(vectors) == 0 {
		return "", fmt.Errorf("empty embedding result")
	}

	id := uuid.New().String()
	payload := make(map[string]string, len(metadata)+4)
	for k, v := range metadata {
		payload[k] = v
	}
	payload["content"] = content
	payload["org_id"] = orgID
	payload["project_id"] = projectID
	payload["indexed_at"] = time.Now().UTC().Format(time.RFC3339)

	if err := s.qdrant.Upsert(ctx, s.collection, id, vectors[0], payload); err != nil {
		return "", fmt.Errorf("upsert: %w", err)
	}
	return id, nil
}

// IndexBatch embeds several documents in one embedding call and stores them
// in one upsert. All documents share the org/project scope and metadata.
func (s *Service) IndexBatch(ctx context.Context, orgID, projectID string, contents []string, metadata map[string]string) ([]string, error) {
	if len(contents) == 0 {
		return nil, nil
	}
	vectors, err := s.embedder.Embed(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("embed contents: %w", err)
	}
	if len(vectors) != len(contents) {
		return nil, fmt.Errorf("got %d embeddings for %d documents", len(vectors), len(contents))
	}

	now := time.Now().UTC().Format(time.RFC3339)
	ids := make([]string, len(contents))
	points := make([]vectorstore.Point, len(contents))
	for i, content := range contents {
		payload := make(map[string]string, len(metadata)+4)
		for k, v := range metadata {
			payload[k] = v
		}
		payload["content"] = content
		payload["org_id"] = orgID
		payload["project_id"] = projectID
		payload["indexed_at"] = now

		ids[i] = uuid.New().String()
		points[i] = vectorstore.Point{ID: ids[i], Vector: vectors[i], Payload: payload}
	}

	if err := s.qdrant.UpsertBatch(ctx, s.collection, points); err != nil {
		return nil, fmt.Errorf("upsert batch: %w", err)
	}
	s.logger.Info("indexed documents",
		zap.String("org", orgID),
		zap.String("project", projectID),
		zap.Int("count", len(ids)))
	return ids, nil
}

// Delete removes a document from the knowledge collection.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.qdrant.Delete(ctx, s.collection, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
