package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mfadeev/grantmatch/internal/llm"
	"github.com/mfadeev/grantmatch/internal/model"
)

// ErrInvalidAdjustment marks a judge response whose adjustment field is
// missing or does not parse as a number. It surfaces through the caller's
// check hook, so a bad response is retried like a transport fault.
var ErrInvalidAdjustment = errors.New("invalid adjustment")

const (
	defaultMaxWorkers = 4
	judgeMaxTokens    = 300
)

const systemPrompt = `You are a research development officer assessing how well a funding opportunity fits a researcher. Respond with a single JSON object {"adjustment": <number between -0.2 and 0.2>, "rationale": "<one or two sentences>"} and nothing else. A positive adjustment means the fit is better than the topical similarity suggests, a negative one means worse.`

// Judge refines similarity scores with a bounded LLM correction. The judge
// is an enhancement: any failure leaves the candidate scored on similarity
// alone and never fails the pipeline.
type Judge struct {
	caller     *llm.Caller
	maxWorkers int
	logger     *zap.Logger
}

// New builds a judge around caller. A nil caller judges nothing: JudgeAll
// leaves every candidate SKIPPED.
func New(caller *llm.Caller, maxWorkers int, logger *zap.Logger) *Judge {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Judge{
		caller:     caller,
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

// JudgeAll enhances the strongest candidates in place, spending one budget
// slot per judged opportunity. Candidates are ordered by similarity
// descending (ties by opportunity key) so the budget goes to the best
// matches first; candidates beyond the budget keep JudgeStatus SKIPPED.
// Returns the number of candidates judged OK.
func (j *Judge) JudgeAll(ctx context.Context, profile *model.ResearcherProfile, scored []model.ScoredOpportunity, budget *Budget) int {
	if j.caller == nil || budget == nil || len(scored) == 0 {
		return 0
	}

	order := make([]int, len(scored))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := &scored[order[a]], &scored[order[b]]
		if sa.Similarity != sb.Similarity {
			return sa.Similarity > sb.Similarity
		}
		return sa.Opportunity.Key() < sb.Opportunity.Key()
	})

	var selected []int
	for _, idx := range order {
		if !budget.TryAcquire() {
			break
		}
		selected = append(selected, idx)
	}
	if len(selected) == 0 {
		return 0
	}

	j.logger.Debug("judging top candidates",
		zap.Int("selected", len(selected)),
		zap.Int("candidates", len(scored)),
		zap.Int("budget_remaining", budget.Remaining()))

	summary := profile.Summary()
	sem := make(chan struct{}, j.maxWorkers)
	var wg sync.WaitGroup

	for _, idx := range selected {
		wg.Add(1)
		go func(s *model.ScoredOpportunity) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				// Slot claimed but never judged; score stands as-is.
				s.Adjustment = 0
				s.Rationale = ""
				s.JudgeStatus = model.JudgeFailed
				return
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			j.judgeOne(ctx, summary, s)
		}(&scored[idx])
	}
	wg.Wait()

	judged := 0
	for _, idx := range selected {
		if scored[idx].JudgeStatus == model.JudgeOK {
			judged++
		}
	}
	return judged
}

// judgeOne runs a single judge call and writes the outcome onto s
func (j *Judge) judgeOne(ctx context.Context, summary string, s *model.ScoredOpportunity) {
	req := llm.Request{
		System:    systemPrompt,
		Prompt:    buildPrompt(summary, s),
		MaxTokens: judgeMaxTokens,
	}

	var v verdict
	_, err := j.caller.Call(ctx, req, func(resp *llm.Response) error {
		parsed, perr := parseVerdict(resp.Text)
		if perr != nil {
			return perr
		}
		v = parsed
		return nil
	})
	if err != nil {
		j.logger.Warn("judge call failed, keeping similarity-only score",
			zap.String("opportunity", s.Opportunity.Key()),
			zap.Error(err))
		s.Adjustment = 0
		s.Rationale = ""
		s.JudgeStatus = model.JudgeFailed
		return
	}

	s.Adjustment = v.adjustment
	s.Rationale = v.rationale
	s.JudgeStatus = model.JudgeOK

	j.logger.Debug("judge verdict",
		zap.String("opportunity", s.Opportunity.Key()),
		zap.Float64("adjustment", v.adjustment))
}

// buildPrompt seeds the judge request with the profile summary and the
// opportunity context
func buildPrompt(summary string, s *model.ScoredOpportunity) string {
	opp := s.Opportunity

	var b strings.Builder
	fmt.Fprintf(&b, "Researcher profile:\n%s\n\n", summary)
	fmt.Fprintf(&b, "Funding opportunity:\nAgency: %s\nTitle: %s\n", opp.Agency, opp.Title)
	if opp.Synopsis != "" {
		fmt.Fprintf(&b, "Synopsis: %s\n", opp.Synopsis)
	}
	if opp.Eligibility != "" {
		fmt.Fprintf(&b, "Eligibility: %s\n", opp.Eligibility)
	}
	fmt.Fprintf(&b, "\nTopical similarity: %.2f (0 = unrelated, 1 = same research area).\n", s.Similarity)
	b.WriteString("Return the JSON verdict only.")
	return b.String()
}

type verdict struct {
	adjustment float64
	rationale  string
}

// verdictPayload mirrors the JSON object the judge asks the model to return
type verdictPayload struct {
	Adjustment json.Number `json:"adjustment"`
	Rationale  string      `json:"rationale"`
}

// parseVerdict decodes a judge response, clipping out-of-range adjustments
// to ±MaxAdjustment. Unparseable responses and non-numeric adjustments
// return ErrInvalidAdjustment.
func parseVerdict(text string) (verdict, error) {
	cleaned := llm.StripCodeFences(text)

	var payload verdictPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return verdict{}, fmt.Errorf("%w: %v", ErrInvalidAdjustment, err)
	}
	if payload.Adjustment == "" {
		return verdict{}, fmt.Errorf("%w: adjustment missing", ErrInvalidAdjustment)
	}

	adj, err := payload.Adjustment.Float64()
	if err != nil {
		return verdict{}, fmt.Errorf("%w: %v", ErrInvalidAdjustment, err)
	}

	if adj > model.MaxAdjustment {
		adj = model.MaxAdjustment
	}
	if adj < -model.MaxAdjustment {
		adj = -model.MaxAdjustment
	}

	return verdict{adjustment: adj, rationale: strings.TrimSpace(payload.Rationale)}, nil
}
