package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/mfadeev/grantmatch/internal/cache"
	"github.com/mfadeev/grantmatch/internal/model"
)

// Embedder converts text into a fixed-length topic vector
type Embedder interface {
	// Name identifies the embedder including its model, for cache keys and logs
	Name() string
	// Dimensions is the length of vectors this embedder produces
	Dimensions() int
	// Embed computes the vector for one text
	Embed(ctx context.Context, text string) ([]float64, error)
}

// New builds the configured embedder. When store is non-nil the embedder is
// wrapped with vector memoization.
func New(cfg *model.Config, store cache.Cache) (Embedder, error) {
	var e Embedder

	switch strings.ToLower(cfg.Embedding.Provider) {
	case "", "hashing":
		e = NewHashing(cfg.Embedding.Dimensions)
	case "openai":
		if cfg.Embedding.APIKey == "" {
			return nil, fmt.Errorf("embedding provider %s requires an API key", cfg.Embedding.Provider)
		}
		e = NewOpenAI(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions, "")
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}

	if store != nil {
		e = WithCache(e, store)
	}
	return e, nil
}
