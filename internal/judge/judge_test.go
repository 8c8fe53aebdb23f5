package judge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mfadeev/grantmatch/internal/llm"
	"github.com/mfadeev/grantmatch/internal/model"
)

// replyClient answers each request by matching the prompt against a reply
// table; prompts matching nothing get a neutral verdict
type replyClient struct {
	replies map[string]string // prompt substring -> response text
	calls   atomic.Int64
}

func (c *replyClient) Name() string { return "reply" }

func (c *replyClient) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	c.calls.Add(1)
	for needle, text := range c.replies {
		if strings.Contains(req.Prompt, needle) {
			return &llm.Response{Text: text}, nil
		}
	}
	return &llm.Response{Text: `{"adjustment": 0, "rationale": "neutral"}`}, nil
}

// sequenceClient returns canned texts in call order, repeating the last
type sequenceClient struct {
	mu    sync.Mutex
	texts []string
	calls int
}

func (c *sequenceClient) Name() string { return "sequence" }

func (c *sequenceClient) Generate(_ context.Context, _ llm.Request) (*llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	if i >= len(c.texts) {
		i = len(c.texts) - 1
	}
	c.calls++
	return &llm.Response{Text: c.texts[i]}, nil
}

func newTestJudge(client llm.Client) *Judge {
	caller := llm.NewCaller(client, nil)
	caller.Sleep = func(time.Duration) {}
	return New(caller, 2, zap.NewNop())
}

func profileFixture() *model.ResearcherProfile {
	return &model.ResearcherProfile{
		ID:          "r1",
		CareerStage: model.CareerFaculty,
		Keywords:    []string{"solar", "storage"},
	}
}

func scoredFixture() []model.ScoredOpportunity {
	mk := func(agency model.Agency, id, title string, sim float64) model.ScoredOpportunity {
		return model.ScoredOpportunity{
			Opportunity: &model.Opportunity{Agency: agency, ID: id, Title: title},
			Similarity:  sim,
			JudgeStatus: model.JudgeSkipped,
		}
	}
	return []model.ScoredOpportunity{
		mk(model.AgencyNSF, "NSF-1", "Solar Materials", 0.91),
		mk(model.AgencyDOE, "DE-FOA-0001", "Grid Storage", 0.85),
		mk(model.AgencyNSF, "NSF-2", "Battery Recycling", 0.72),
		mk(model.AgencyGrantsGov, "GG-1", "STEM Outreach", 0.44),
		mk(model.AgencyNSF, "NSF-3", "Quantum Sensing", 0.31),
	}
}

func TestJudgeAllSpendsBudgetOnTopSimilarity(t *testing.T) {
	client := &replyClient{replies: map[string]string{
		"Solar Materials": `{"adjustment": 0.15, "rationale": "strong overlap"}`,
		"Grid Storage":    `{"adjustment": 0.05, "rationale": "related"}`,
	}}
	j := newTestJudge(client)
	scored := scoredFixture()
	budget := NewBudget(2)

	judged := j.JudgeAll(context.Background(), profileFixture(), scored, budget)

	if judged != 2 {
		t.Fatalf("judged = %d, want 2", judged)
	}
	if budget.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", budget.Remaining())
	}

	if scored[0].JudgeStatus != model.JudgeOK || scored[0].Adjustment != 0.15 {
		t.Errorf("top candidate: status %s adjustment %v", scored[0].JudgeStatus, scored[0].Adjustment)
	}
	if scored[0].Rationale != "strong overlap" {
		t.Errorf("rationale = %q", scored[0].Rationale)
	}
	if scored[1].JudgeStatus != model.JudgeOK || scored[1].Adjustment != 0.05 {
		t.Errorf("second candidate: status %s adjustment %v", scored[1].JudgeStatus, scored[1].Adjustment)
	}

	for i := 2; i < len(scored); i++ {
		if scored[i].JudgeStatus != model.JudgeSkipped {
			t.Errorf("candidate %d status = %s, want SKIPPED", i, scored[i].JudgeStatus)
		}
		if scored[i].Adjustment != 0 || scored[i].Rationale != "" {
			t.Errorf("candidate %d mutated without being judged", i)
		}
	}
}

func TestJudgeAllTieBreaksByKey(t *testing.T) {
	scored := []model.ScoredOpportunity{
		{Opportunity: &model.Opportunity{Agency: model.AgencyNSF, ID: "B-2", Title: "Beta"}, Similarity: 0.8, JudgeStatus: model.JudgeSkipped},
		{Opportunity: &model.Opportunity{Agency: model.AgencyNSF, ID: "A-1", Title: "Alpha"}, Similarity: 0.8, JudgeStatus: model.JudgeSkipped},
	}
	j := newTestJudge(&replyClient{})

	judged := j.JudgeAll(context.Background(), profileFixture(), scored, NewBudget(1))
	if judged != 1 {
		t.Fatalf("judged = %d, want 1", judged)
	}
	if scored[1].JudgeStatus != model.JudgeOK {
		t.Errorf("NSF/A-1 should win the tie, got status %s", scored[1].JudgeStatus)
	}
	if scored[0].JudgeStatus != model.JudgeSkipped {
		t.Errorf("NSF/B-2 should stay SKIPPED, got %s", scored[0].JudgeStatus)
	}
}

func TestJudgeAllBudgetLargerThanCandidates(t *testing.T) {
	j := newTestJudge(&replyClient{})
	scored := scoredFixture()
	budget := NewBudget(50)

	judged := j.JudgeAll(context.Background(), profileFixture(), scored, budget)
	if judged != len(scored) {
		t.Fatalf("judged = %d, want %d", judged, len(scored))
	}
	if got := budget.Remaining(); got != 50-len(scored) {
		t.Errorf("Remaining() = %d, want %d", got, 50-len(scored))
	}
}

func TestJudgeAllRetriesUnparseableVerdict(t *testing.T) {
	client := &sequenceClient{texts: []string{
		"I think this is a great fit!",
		`{"adjustment": "not a number", "rationale": "?"}`,
		`{"adjustment": -0.1, "rationale": "weak overlap"}`,
	}}
	j := newTestJudge(client)
	scored := scoredFixture()[:1]

	judged := j.JudgeAll(context.Background(), profileFixture(), scored, NewBudget(1))
	if judged != 1 {
		t.Fatalf("judged = %d, want 1", judged)
	}
	if scored[0].JudgeStatus != model.JudgeOK || scored[0].Adjustment != -0.1 {
		t.Errorf("status %s adjustment %v", scored[0].JudgeStatus, scored[0].Adjustment)
	}
	if client.calls != 3 {
		t.Errorf("calls = %d, want 3", client.calls)
	}
}

func TestJudgeAllExhaustionMarksFailed(t *testing.T) {
	client := &sequenceClient{texts: []string{"no json here"}}
	j := newTestJudge(client)
	scored := scoredFixture()[:1]
	budget := NewBudget(5)

	judged := j.JudgeAll(context.Background(), profileFixture(), scored, budget)
	if judged != 0 {
		t.Fatalf("judged = %d, want 0", judged)
	}

	s := scored[0]
	if s.JudgeStatus != model.JudgeFailed || s.Adjustment != 0 || s.Rationale != "" {
		t.Errorf("got status %s adjustment %v rationale %q, want FAILED/0/empty",
			s.JudgeStatus, s.Adjustment, s.Rationale)
	}

	// Retries never consume extra slots.
	if got := budget.Remaining(); got != 4 {
		t.Errorf("Remaining() = %d, want 4", got)
	}
	if client.calls != 3 {
		t.Errorf("calls = %d, want 3", client.calls)
	}
}

func TestJudgeAllNilCallerSkipsEverything(t *testing.T) {
	j := New(nil, 0, nil)
	scored := scoredFixture()
	budget := NewBudget(10)

	if judged := j.JudgeAll(context.Background(), profileFixture(), scored, budget); judged != 0 {
		t.Fatalf("judged = %d, want 0", judged)
	}
	for i, s := range scored {
		if s.JudgeStatus != model.JudgeSkipped {
			t.Errorf("candidate %d status = %s, want SKIPPED", i, s.JudgeStatus)
		}
	}
	if budget.Remaining() != 10 {
		t.Errorf("budget touched: Remaining() = %d", budget.Remaining())
	}
}

func TestJudgeAllCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &replyClient{}
	j := newTestJudge(client)
	scored := scoredFixture()
	budget := NewBudget(2)

	judged := j.JudgeAll(ctx, profileFixture(), scored, budget)
	if judged != 0 {
		t.Fatalf("judged = %d, want 0", judged)
	}
	for _, idx := range []int{0, 1} {
		if scored[idx].JudgeStatus != model.JudgeFailed {
			t.Errorf("selected candidate %d = %s, want FAILED", idx, scored[idx].JudgeStatus)
		}
	}
	if got := client.calls.Load(); got != 0 {
		t.Errorf("calls = %d, want 0 after cancellation", got)
	}
}

func TestBuildPromptSeedsContext(t *testing.T) {
	s := &model.ScoredOpportunity{
		Opportunity: &model.Opportunity{
			Agency:      model.AgencyDOE,
			ID:          "DE-FOA-0042",
			Title:       "Long Duration Storage",
			Synopsis:    "Grid-scale storage research.",
			Eligibility: "University faculty only.",
		},
		Similarity: 0.8125,
	}
	got := buildPrompt("Career stage: faculty", s)

	for _, want := range []string{
		"Career stage: faculty",
		"Agency: DOE",
		"Long Duration Storage",
		"Grid-scale storage research.",
		"University faculty only.",
		"0.81",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantAdj float64
		wantRat string
		wantErr bool
	}{
		{"plain", `{"adjustment": 0.1, "rationale": "good fit"}`, 0.1, "good fit", false},
		{"fenced", "```json\n{\"adjustment\": -0.05, \"rationale\": \"weak\"}\n```", -0.05, "weak", false},
		{"clipped high", `{"adjustment": 0.75, "rationale": "enthusiastic"}`, 0.2, "enthusiastic", false},
		{"clipped low", `{"adjustment": -1, "rationale": "wrong field"}`, -0.2, "wrong field", false},
		{"quoted number accepted", `{"adjustment": "0.1", "rationale": "ok"}`, 0.1, "ok", false},
		{"rationale trimmed", `{"adjustment": 0, "rationale": "  padded  "}`, 0, "padded", false},
		{"non-numeric", `{"adjustment": "very high", "rationale": "?"}`, 0, "", true},
		{"missing adjustment", `{"rationale": "no verdict"}`, 0, "", true},
		{"not json", "Sounds like a terrific opportunity.", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := parseVerdict(tt.text)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAdjustment) {
					t.Fatalf("err = %v, want ErrInvalidAdjustment", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseVerdict: %v", err)
			}
			if v.adjustment != tt.wantAdj {
				t.Errorf("adjustment = %v, want %v", v.adjustment, tt.wantAdj)
			}
			if v.rationale != tt.wantRat {
				t.Errorf("rationale = %q, want %q", v.rationale, tt.wantRat)
			}
		})
	}
}
