package embed

import (
	"context"
	"encoding/json"

	"github.com/mfadeev/grantmatch/internal/cache"
)

// Cached memoizes an embedder's vectors in a cache. Entries use the store's
// default TTLs.
type Cached struct {
	inner Embedder
	store cache.Cache
}

// WithCache wraps an embedder with vector memoization
func WithCache(inner Embedder, store cache.Cache) *Cached {
	return &Cached{inner: inner, store: store}
}

// Name identifies the underlying embedder
func (c *Cached) Name() string {
	return c.inner.Name()
}

// Dimensions is the underlying embedder's vector width
func (c *Cached) Dimensions() int {
	return c.inner.Dimensions()
}

// Embed returns the cached vector when present, computing and storing it
// otherwise. Unreadable cache entries are recomputed.
func (c *Cached) Embed(ctx context.Context, text string) ([]float64, error) {
	key := cache.EmbeddingKey(c.inner.Name(), text)

	if data, ok := c.store.Get(key); ok {
		var vec []float64
		if err := json.Unmarshal(data, &vec); err == nil {
			return vec, nil
		}
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(vec); err == nil {
		_ = c.store.Set(key, data, 0)
	}
	return vec, nil
}
