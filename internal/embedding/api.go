package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Most OpenAI-compatible servers reject very large input arrays, so requests
// are chunked.
const embedBatchSize = 96

const embedErrBodyLimit = 512

// APIProvider implements Provider against an OpenAI-compatible /embeddings
// endpoint.
type APIProvider struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client

	mu       sync.Mutex
	dim      int // learned from the first response
	fallback int // configured default
}

// NewAPIProvider creates a new APIProvider from the given Config.
func NewAPIProvider(cfg Config) *APIProvider {
	return &APIProvider{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		fallback: cfg.Dimension,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type apiRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type apiEmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type apiResponse struct {
	Data []apiEmbeddingData `json:"data"`
}

// Embed returns one vector per input text, chunking the request when the
// input exceeds the server's batch tolerance.
func (p *APIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := p.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}

	if len(out) > 0 && len(out[0]) > 0 {
		p.mu.Lock()
		if p.dim == 0 {
			p.dim = len(out[0])
		}
		p.mu.Unlock()
	}
	return out, nil
}

func (p *APIProvider) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(apiRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, embedErrBodyLimit))
		return nil, fmt.Errorf("embedding: API returned status %d: %s", resp.StatusCode, string(snippet))
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: got %d vectors for %d inputs", len(result.Data), len(texts))
	}

	// Servers may return items out of order; the index field is authoritative.
	vecs := make([][]float32, len(texts))
	for i, d := range result.Data {
		idx := d.Index
		if idx < 0 || idx >= len(vecs) {
			idx = i
		}
		vecs[idx] = d.Embedding
	}
	return vecs, nil
}

// Dimension returns the learned vector dimension, or the configured default
// before the first successful call.
func (p *APIProvider) Dimension() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dim > 0 {
		return p.dim
	}
	return p.fallback
}
