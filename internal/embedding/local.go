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

// Ollama embeds one prompt per request, so batches fan out over a small
// worker pool.
const localWorkers = 4

// LocalProvider implements Provider against an Ollama-compatible
// /api/embeddings endpoint.
type LocalProvider struct {
	endpoint string
	model    string
	client   *http.Client

	mu       sync.Mutex
	dim      int
	fallback int
}

// NewLocalProvider creates a new LocalProvider from the given Config.
func NewLocalProvider(cfg Config) *LocalProvider {
	return &LocalProvider{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		fallback: cfg.Dimension,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type localRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type localResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns one vector per text. Requests run concurrently; the first
// failure cancels the rest.
func (p *LocalProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make([][]float32, len(texts))
	errs := make([]error, len(texts))
	sem := make(chan struct{}, localWorkers)
	var wg sync.WaitGroup

	for i, text := range texts {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			}
			vec, err := p.embedOne(ctx, text)
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			out[i] = vec
		}(i, text)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	if len(out[0]) > 0 {
		p.mu.Lock()
		if p.dim == 0 {
			p.dim = len(out[0])
		}
		p.mu.Unlock()
	}
	return out, nil
}

func (p *LocalProvider) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(localRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, embedErrBodyLimit))
		return nil, fmt.Errorf("embedding: API returned status %d: %s", resp.StatusCode, string(snippet))
	}

	var result localResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	return result.Embedding, nil
}

// Dimension returns the learned vector dimension, or the configured default
// before the first successful call.
func (p *LocalProvider) Dimension() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dim > 0 {
		return p.dim
	}
	return p.fallback
}
