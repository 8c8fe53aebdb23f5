package score

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/mfadeev/grantmatch/internal/embed"
	"github.com/mfadeev/grantmatch/internal/model"
)

const (
	keywordBonusCap    = 0.1
	eligibilityPenalty = 0.3
)

// Scorer computes deterministic topical fit between a profile and
// opportunities: rescaled cosine similarity plus a keyword-overlap bonus,
// minus an eligibility penalty. With the hashing embedder the whole
// computation is pure and offline.
type Scorer struct {
	embedder embed.Embedder
	screen   *EligibilityScreen
	workers  int
}

// NewScorer creates a scorer that embeds up to workers opportunities at a time
func NewScorer(embedder embed.Embedder, screen *EligibilityScreen, workers int) *Scorer {
	if workers <= 0 {
		workers = 1
	}
	if screen == nil {
		screen = NewEligibilityScreen(nil)
	}
	return &Scorer{embedder: embedder, screen: screen, workers: workers}
}

// Score computes the similarity entry for one opportunity. The result starts
// with no judge enhancement: adjustment 0, status SKIPPED.
func (s *Scorer) Score(ctx context.Context, profile *model.ResearcherProfile, opp *model.Opportunity) (*model.ScoredOpportunity, error) {
	vec, err := s.embedder.Embed(ctx, opp.Title+"\n"+opp.Synopsis)
	if err != nil {
		return nil, fmt.Errorf("embed opportunity %s: %w", opp.Key(), err)
	}

	// Cosine of a zero vector is 0, which rescales to the 0.5 neutral
	// baseline rather than punishing the opportunity.
	sim := (Cosine(profile.TopicVector, vec) + 1) / 2
	sim += keywordBonus(profile.Keywords, opp)
	if s.screen.Disqualified(profile.CareerStage, opp) {
		sim -= eligibilityPenalty
	}

	return &model.ScoredOpportunity{
		Opportunity: opp,
		Similarity:  model.Clamp01(sim),
		JudgeStatus: model.JudgeSkipped,
	}, nil
}

// ScoreAll scores opportunities in parallel, preserving input order. On
// cancellation no new work is started and the completed subset is returned
// alongside the context error.
func (s *Scorer) ScoreAll(ctx context.Context, profile *model.ResearcherProfile, opps []*model.Opportunity) ([]model.ScoredOpportunity, error) {
	scored := make([]*model.ScoredOpportunity, len(opps))
	sem := make(chan struct{}, s.workers)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i, opp := range opps {
		if ctx.Err() != nil {
			break
		}
		mu.Lock()
		failed := firstErr != nil
		mu.Unlock()
		if failed {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, opp *model.Opportunity) {
			defer wg.Done()
			defer func() { <-sem }()

			item, err := s.Score(ctx, profile, opp)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			scored[i] = item
		}(i, opp)
	}
	wg.Wait()

	out := make([]model.ScoredOpportunity, 0, len(scored))
	for _, item := range scored {
		if item != nil {
			out = append(out, *item)
		}
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, firstErr
}

// Cosine computes cosine similarity, returning 0 when either vector has zero
// norm or the lengths differ
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// keywordBonus is the matched fraction of profile keywords scaled to at most
// keywordBonusCap. Keywords match as case-insensitive substrings of the
// opportunity title and synopsis.
func keywordBonus(keywords []string, opp *model.Opportunity) float64 {
	if len(keywords) == 0 {
		return 0
	}

	haystack := strings.ToLower(opp.Title + " " + opp.Synopsis)
	matched := 0
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw != "" && strings.Contains(haystack, kw) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords)) * keywordBonusCap
}
