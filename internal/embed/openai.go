package embed

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI embeds text through the OpenAI embeddings endpoint
type OpenAI struct {
	client *openai.Client
	model  string
	dims   int
}

// NewOpenAI creates the OpenAI embedder. An empty baseURL targets the public
// API; dims > 0 requests truncated vectors of that width.
func NewOpenAI(apiKey, model string, dims int, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		dims:   dims,
	}
}

// Name identifies the embedder for cache keys and logs
func (o *OpenAI) Name() string {
	return "openai/" + o.model
}

// Dimensions is the requested vector width; 0 means the model default
func (o *OpenAI) Dimensions() int {
	return o.dims
}

// Embed computes the vector for one text
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float64, error) {
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(o.model),
	}
	if o.dims > 0 {
		req.Dimensions = o.dims
	}

	resp, err := o.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response has no data")
	}

	raw := resp.Data[0].Embedding
	vec := make([]float64, len(raw))
	for i, f := range raw {
		vec[i] = float64(f)
	}
	return vec, nil
}
