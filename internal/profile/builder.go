package profile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/mfadeev/grantmatch/internal/embed"
	"github.com/mfadeev/grantmatch/internal/model"
)

// ErrNoDocuments marks a profile request over an empty corpus. Build itself
// accepts zero documents; callers that need a populated profile (the match
// pipeline with RequireDocuments set) surface this instead.
var ErrNoDocuments = errors.New("profile needs at least one source document")

const (
	recencyHalfLifeYears = 5.0
	unknownYearFactor    = 0.25
)

// Builder assembles researcher profiles: one embedding per source document,
// averaged into the topic vector, plus the deduplicated keyword set with
// recency weights.
type Builder struct {
	embedder embed.Embedder
	workers  int
	now      func() time.Time
}

// NewBuilder creates a builder that embeds up to workers documents at a time
func NewBuilder(embedder embed.Embedder, workers int) *Builder {
	if workers <= 0 {
		workers = 1
	}
	return &Builder{
		embedder: embedder,
		workers:  workers,
		now:      time.Now,
	}
}

// Build computes the profile for one researcher. Every document must embed
// successfully; a failed embedding or a canceled context fails the whole
// build, since a profile averaged over a partial corpus would skew matching.
// Zero documents yield a valid profile with a zero topic vector and no
// keywords; every similarity computed against it sits at the neutral
// baseline.
func (b *Builder) Build(ctx context.Context, id string, stage model.CareerStage, docs []model.SourceDocument) (*model.ResearcherProfile, error) {
	if len(docs) == 0 {
		return &model.ResearcherProfile{
			ID:          id,
			CareerStage: stage,
			TopicVector: make([]float64, b.embedder.Dimensions()),
		}, nil
	}

	vecs := make([][]float64, len(docs))
	sem := make(chan struct{}, b.workers)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, doc model.SourceDocument) {
			defer wg.Done()
			defer func() { <-sem }()

			vec, err := b.embedder.Embed(ctx, doc.Title+"\n"+doc.Abstract)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("embed document %q: %w", doc.Title, err)
				}
				mu.Unlock()
				return
			}
			vecs[i] = vec
		}(i, doc)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}

	keywords := foldKeywords(docs)

	return &model.ResearcherProfile{
		ID:             id,
		CareerStage:    stage,
		Documents:      append([]model.SourceDocument(nil), docs...),
		TopicVector:    meanVector(vecs),
		Keywords:       keywords,
		KeywordWeights: b.keywordWeights(docs),
	}, nil
}

// meanVector averages per-document vectors with equal weight
func meanVector(vecs [][]float64) []float64 {
	mean := make([]float64, len(vecs[0]))
	for _, vec := range vecs {
		for i, v := range vec {
			mean[i] += v
		}
	}
	n := float64(len(vecs))
	for i := range mean {
		mean[i] /= n
	}
	return mean
}

// foldKeywords lowercases and deduplicates keywords across documents,
// keeping first-occurrence order
func foldKeywords(docs []model.SourceDocument) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, doc := range docs {
		for _, kw := range doc.Keywords {
			k := strings.ToLower(strings.TrimSpace(kw))
			if k == "" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// keywordWeights favors terms from recent work. A keyword's raw weight is
// the best recency factor among the documents carrying it, halving every
// recencyHalfLifeYears; documents without a year count at a flat discount.
// Weights are scaled so the top keyword is 1. They steer prompt content
// only, never similarity scores.
func (b *Builder) keywordWeights(docs []model.SourceDocument) map[string]float64 {
	currentYear := b.now().Year()
	weights := make(map[string]float64)

	for _, doc := range docs {
		factor := unknownYearFactor
		if doc.Year > 0 {
			age := float64(currentYear - doc.Year)
			if age < 0 {
				age = 0
			}
			factor = math.Pow(0.5, age/recencyHalfLifeYears)
		}
		for _, kw := range doc.Keywords {
			k := strings.ToLower(strings.TrimSpace(kw))
			if k == "" {
				continue
			}
			if factor > weights[k] {
				weights[k] = factor
			}
		}
	}

	var top float64
	for _, w := range weights {
		if w > top {
			top = w
		}
	}
	if top > 0 {
		for k := range weights {
			weights[k] /= top
		}
	}
	return weights
}
