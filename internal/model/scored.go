package model

// JudgeStatus records the outcome of the fit-judge step for one opportunity
type JudgeStatus string

const (
	JudgeOK      JudgeStatus = "OK"      // judge returned a usable adjustment
	JudgeSkipped JudgeStatus = "SKIPPED" // judge never ran (disabled or over budget)
	JudgeFailed  JudgeStatus = "FAILED"  // judge exhausted retries; similarity-only
)

// MaxAdjustment bounds the judge correction in either direction
const MaxAdjustment = 0.2

// ScoredOpportunity pairs an opportunity with its deterministic similarity
// score and the judge outcome. Created by the scorer with Adjustment=0 and
// JudgeStatus=SKIPPED, mutated only by the judge step, frozen once ranked.
type ScoredOpportunity struct {
	Opportunity *Opportunity `json:"opportunity"`
	Similarity  float64      `json:"similarity"` // deterministic topical fit, [0,1]
	Adjustment  float64      `json:"adjustment"` // judge correction, [-MaxAdjustment, MaxAdjustment]
	Rationale   string       `json:"rationale,omitempty"`
	JudgeStatus JudgeStatus  `json:"judge_status"`
}

// FinalScore fuses similarity and adjustment, clamped to [0,1]. Computed on
// demand so it can never go stale against its inputs.
func (s *ScoredOpportunity) FinalScore() float64 {
	return Clamp01(s.Similarity + s.Adjustment)
}

// SimilarityOnly reports whether the score carries no judge enhancement
func (s *ScoredOpportunity) SimilarityOnly() bool {
	return s.JudgeStatus != JudgeOK
}

// Clamp01 clips v into the closed unit interval
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
