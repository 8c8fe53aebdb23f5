package rank

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mfadeev/grantmatch/internal/model"
)

// Ranker turns judged scores into the final ordered result. Hard filters run
// before sorting, so a filtered opportunity never appears in the output at
// any rank.
type Ranker struct {
	filters model.FilterConfig
	logger  *zap.Logger

	// now anchors the days-to-deadline window, replaceable in tests
	now func() time.Time
}

// New builds a ranker with the given hard filters. Nil filter fields disable
// the corresponding rule.
func New(filters model.FilterConfig, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{
		filters: filters,
		logger:  logger,
		now:     time.Now,
	}
}

// Rank filters and orders scored opportunities. The input slice keeps its
// order; the result aliases its surviving entries.
func (r *Ranker) Rank(scored []model.ScoredOpportunity) *model.RankedResult {
	items := make([]*model.ScoredOpportunity, 0, len(scored))
	for i := range scored {
		s := &scored[i]
		if r.keep(s) {
			items = append(items, s)
		}
	}

	sort.SliceStable(items, func(a, b int) bool {
		return rankLess(items[a], items[b])
	})

	r.logger.Debug("ranked opportunities",
		zap.Int("kept", len(items)),
		zap.Int("filtered", len(scored)-len(items)))

	return &model.RankedResult{Items: items}
}

// keep applies the hard filters. Opportunities that do not state a filtered
// attribute always pass that rule.
func (r *Ranker) keep(s *model.ScoredOpportunity) bool {
	opp := s.Opportunity
	f := r.filters

	if f.MinAwardCeiling != nil && opp.AwardCeiling != nil && *opp.AwardCeiling < *f.MinAwardCeiling {
		r.logger.Debug("filtered by award ceiling",
			zap.String("opportunity", opp.Key()),
			zap.Float64("ceiling", *opp.AwardCeiling),
			zap.Float64("minimum", *f.MinAwardCeiling))
		return false
	}

	// Deadlines already in the past are kept; the window only cuts
	// opportunities too far in the future.
	if f.MaxDaysToDeadline != nil && opp.Deadline != nil {
		cutoff := r.now().AddDate(0, 0, *f.MaxDaysToDeadline)
		if opp.Deadline.After(cutoff) {
			r.logger.Debug("filtered by deadline window",
				zap.String("opportunity", opp.Key()),
				zap.Time("deadline", *opp.Deadline),
				zap.Int("max_days", *f.MaxDaysToDeadline))
			return false
		}
	}

	if f.MinFinalScore != nil && s.FinalScore() < *f.MinFinalScore {
		r.logger.Debug("filtered by final score",
			zap.String("opportunity", opp.Key()),
			zap.Float64("final_score", s.FinalScore()),
			zap.Float64("minimum", *f.MinFinalScore))
		return false
	}

	return true
}

// rankLess is the total order over ranked items: final score descending,
// then deadline presence with earlier deadlines first, then identifier and
// agency for full determinism.
func rankLess(a, b *model.ScoredOpportunity) bool {
	fa, fb := a.FinalScore(), b.FinalScore()
	if fa != fb {
		return fa > fb
	}

	da, db := a.Opportunity.Deadline, b.Opportunity.Deadline
	switch {
	case da != nil && db == nil:
		return true
	case da == nil && db != nil:
		return false
	case da != nil && db != nil && !da.Equal(*db):
		return da.Before(*db)
	}

	if a.Opportunity.ID != b.Opportunity.ID {
		return a.Opportunity.ID < b.Opportunity.ID
	}
	return a.Opportunity.Agency < b.Opportunity.Agency
}
