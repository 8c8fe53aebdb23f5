package model

import "time"

// RankedResult is the ordered match list for one session, strictly
// non-increasing by final score. Immutable once produced; regenerating it
// means rerunning the pipeline.
type RankedResult struct {
	Items []*ScoredOpportunity `json:"items"`
}

// Len reports the number of ranked opportunities
func (r *RankedResult) Len() int {
	return len(r.Items)
}

// Top returns up to n leading items without copying the underlying entries
func (r *RankedResult) Top(n int) []*ScoredOpportunity {
	if n > len(r.Items) {
		n = len(r.Items)
	}
	if n < 0 {
		n = 0
	}
	return r.Items[:n]
}

// RankedRecord is the flat export row consumed by presentation collaborators
type RankedRecord struct {
	Rank           int         `json:"rank"`
	Agency         Agency      `json:"agency"`
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	FinalScore     float64     `json:"final_score"`
	Rationale      string      `json:"rationale,omitempty"`
	Deadline       string      `json:"deadline,omitempty"` // YYYY-MM-DD, empty when not stated
	JudgeStatus    JudgeStatus `json:"judge_status"`
	SimilarityOnly bool        `json:"similarity_only"`
}

// Records flattens the ranked result for rendering or export. Entries whose
// judge step was skipped or failed are marked similarity-only.
func (r *RankedResult) Records() []RankedRecord {
	records := make([]RankedRecord, 0, len(r.Items))
	for i, item := range r.Items {
		opp := item.Opportunity
		rec := RankedRecord{
			Rank:           i + 1,
			Agency:         opp.Agency,
			ID:             opp.ID,
			Title:          opp.Title,
			FinalScore:     item.FinalScore(),
			Rationale:      item.Rationale,
			JudgeStatus:    item.JudgeStatus,
			SimilarityOnly: item.SimilarityOnly(),
		}
		if opp.Deadline != nil {
			rec.Deadline = opp.Deadline.Format(time.DateOnly)
		}
		records = append(records, rec)
	}
	return records
}
