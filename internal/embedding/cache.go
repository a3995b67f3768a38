package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "relay:embed:"

// CachedProvider wraps a Provider with a Redis cache keyed by model and
// text hash. Cache failures are logged and bypassed; the wrapped provider
// is always the source of truth.
type CachedProvider struct {
	inner  Provider
	model  string
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProvider creates a cache wrapper around inner.
func NewCachedProvider(inner Provider, model string, redisURL string, ttl time.Duration, logger *zap.Logger) (*CachedProvider, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &CachedProvider{inner: inner, model: model, rdb: rdb, ttl: ttl, logger: logger}, nil
}

func (p *CachedProvider) key(text string) string {
	sum := sha256.Sum256([]byte(p.model + "\x00" + text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// Embed returns cached vectors where available and embeds the rest through
// the wrapped provider, filling the cache with the fresh results.
func (p *CachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		data, err := p.rdb.Get(ctx, p.key(text)).Bytes()
		if err == nil {
			var vec []float32
			if json.Unmarshal(data, &vec) == nil && len(vec) > 0 {
				out[i] = vec
				continue
			}
		} else if err != redis.Nil {
			p.logger.Warn("embedding cache read failed", zap.Error(err))
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := p.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, fmt.Errorf("embedding: got %d vectors for %d texts", len(fresh), len(missing))
	}

	for j, vec := range fresh {
		out[missingIdx[j]] = vec
		data, merr := json.Marshal(vec)
		if merr != nil {
			continue
		}
		if serr := p.rdb.Set(ctx, p.key(missing[j]), data, p.ttl).Err(); serr != nil {
			p.logger.Warn("embedding cache write failed", zap.Error(serr))
		}
	}
	return out, nil
}

// Dimension reports the wrapped provider's dimension.
func (p *CachedProvider) Dimension() int { return p.inner.Dimension() }

// Close releases the Redis connection.
func (p *CachedProvider) Close() error { return p.rdb.Close() }
