package draft

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

// sectionClient answers section requests with canned text, failing the
// sections listed in fail. It records every requested section and prompt.
type sectionClient struct {
	mu      sync.Mutex
	fail    map[model.SectionKind]error
	calls   []model.SectionKind
	prompts map[model.SectionKind][]string
}

func newSectionClient(fail map[model.SectionKind]error) *sectionClient {
	return &sectionClient{
		fail:    fail,
		prompts: make(map[model.SectionKind][]string),
	}
}

func (c *sectionClient) Name() string { return "sections" }

func (c *sectionClient) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	kind := requestedSection(req.Prompt)

	c.mu.Lock()
	c.calls = append(c.calls, kind)
	c.prompts[kind] = append(c.prompts[kind], req.Prompt)
	err := c.fail[kind]
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &llm.Response{Text: "Text for " + string(kind)}, nil
}

func (c *sectionClient) callCount(kind model.SectionKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.calls {
		if k == kind {
			n++
		}
	}
	return n
}

func (c *sectionClient) lastPrompt(kind model.SectionKind) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ps := c.prompts[kind]
	if len(ps) == 0 {
		return ""
	}
	return ps[len(ps)-1]
}

// requestedSection recovers which section a prompt asks for
func requestedSection(prompt string) model.SectionKind {
	for _, kind := range model.SectionOrder {
		if strings.Contains(prompt, "Section to write now: "+string(kind)+".") {
			return kind
		}
	}
	return ""
}

// cancelingClient succeeds while counting calls and cancels the run once
// the after-th call is reached
type cancelingClient struct {
	cancel context.CancelFunc
	after  int64
	calls  atomic.Int64
}

func (c *cancelingClient) Name() string { return "canceling" }

func (c *cancelingClient) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	if c.calls.Add(1) >= c.after {
		c.cancel()
	}
	return &llm.Response{Text: "Text for " + string(requestedSection(req.Prompt))}, nil
}

func newTestGenerator(client llm.Client) *Generator {
	caller := llm.NewCaller(client, nil)
	caller.Sleep = func(time.Duration) {}
	return New(caller, zap.NewNop())
}

func draftProfile() *model.ResearcherProfile {
	return &model.ResearcherProfile{
		ID:          "r1",
		CareerStage: model.CareerFaculty,
		Keywords:    []string{"machine learning", "climate"},
	}
}

func draftOpportunity() *model.Opportunity {
	ceiling := 200_000.0
	deadline := time.Date(2026, time.September, 4, 0, 0, 0, 0, time.UTC)
	return &model.Opportunity{
		Agency:       model.AgencyNSF,
		ID:           "NSF-26-001",
		Title:        "Climate Model Analytics",
		Synopsis:     "Machine learning methods for climate modeling.",
		AwardCeiling: &ceiling,
		Deadline:     &deadline,
	}
}

func TestGenerateAllSections(t *testing.T) {
	client := newSectionClient(nil)
	g := newTestGenerator(client)

	doc, err := g.Generate(context.Background(), draftProfile(), draftOpportunity())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(doc.Sections) != len(model.SectionOrder) {
		t.Fatalf("sections = %d, want %d", len(doc.Sections), len(model.SectionOrder))
	}
	for i, kind := range model.SectionOrder {
		s := doc.Sections[i]
		if s.Kind != kind {
			t.Errorf("section %d = %s, want %s", i, s.Kind, kind)
		}
		if s.Status != model.SectionOK {
			t.Errorf("section %s status = %s, want OK", kind, s.Status)
		}
		if s.Text != "Text for "+string(kind) {
			t.Errorf("section %s text = %q", kind, s.Text)
		}
	}
	if doc.Completed() != 5 {
		t.Errorf("Completed() = %d, want 5", doc.Completed())
	}
}

func TestGenerateSectionsAreSequential(t *testing.T) {
	client := newSectionClient(nil)
	g := newTestGenerator(client)

	if _, err := g.Generate(context.Background(), draftProfile(), draftOpportunity()); err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(client.calls) != len(model.SectionOrder) {
		t.Fatalf("calls = %d, want %d", len(client.calls), len(model.SectionOrder))
	}
	for i, kind := range model.SectionOrder {
		if client.calls[i] != kind {
			t.Errorf("call %d = %s, want %s", i, client.calls[i], kind)
		}
	}
}

func TestGenerateFailedSectionDoesNotShortCircuit(t *testing.T) {
	client := newSectionClient(map[model.SectionKind]error{
		model.SectionApproach: llm.ErrBadRequest,
	})
	g := newTestGenerator(client)

	doc, err := g.Generate(context.Background(), draftProfile(), draftOpportunity())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	approach := doc.Section(model.SectionApproach)
	if approach.Status != model.SectionFailed || approach.Text != "" {
		t.Errorf("APPROACH = %s %q, want FAILED with empty text", approach.Status, approach.Text)
	}

	// The sections after the failure must still be attempted and succeed.
	for _, kind := range []model.SectionKind{model.SectionTimeline, model.SectionBudgetNote} {
		if client.callCount(kind) == 0 {
			t.Errorf("section %s was never attempted", kind)
		}
		if s := doc.Section(kind); s.Status != model.SectionOK {
			t.Errorf("section %s status = %s, want OK", kind, s.Status)
		}
	}
	if doc.Completed() != 4 {
		t.Errorf("Completed() = %d, want 4", doc.Completed())
	}
}

func TestGenerateTransientFailureRetriesThenFails(t *testing.T) {
	client := newSectionClient(map[model.SectionKind]error{
		model.SectionOverview: llm.ErrUnavailable,
	})
	g := newTestGenerator(client)

	doc, err := g.Generate(context.Background(), draftProfile(), draftOpportunity())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if got := client.callCount(model.SectionOverview); got != 3 {
		t.Errorf("OVERVIEW attempts = %d, want 3 (initial + 2 retries)", got)
	}
	if s := doc.Section(model.SectionOverview); s.Status != model.SectionFailed {
		t.Errorf("OVERVIEW status = %s, want FAILED", s.Status)
	}
	if doc.Completed() != 4 {
		t.Errorf("Completed() = %d, want 4", doc.Completed())
	}
}

func TestGeneratePromptsCarryCompletedSections(t *testing.T) {
	client := newSectionClient(map[model.SectionKind]error{
		model.SectionApproach: llm.ErrBadRequest,
	})
	g := newTestGenerator(client)

	if _, err := g.Generate(context.Background(), draftProfile(), draftOpportunity()); err != nil {
		t.Fatalf("generate: %v", err)
	}

	last := client.lastPrompt(model.SectionBudgetNote)
	if last == "" {
		t.Fatal("BUDGET_NOTE was never requested")
	}

	for _, kind := range []model.SectionKind{model.SectionOverview, model.SectionSignificance, model.SectionTimeline} {
		if !strings.Contains(last, "Text for "+string(kind)) {
			t.Errorf("BUDGET_NOTE prompt missing completed %s text", kind)
		}
	}
	// The failed section contributed no text and must not be echoed.
	if strings.Contains(last, "[APPROACH]") {
		t.Error("BUDGET_NOTE prompt carries the failed APPROACH section")
	}

	// Opportunity context and profile summary ride along on every prompt.
	if !strings.Contains(last, "Climate Model Analytics") {
		t.Error("prompt missing opportunity title")
	}
	if !strings.Contains(last, "Award ceiling: $200000") {
		t.Error("prompt missing award ceiling")
	}
	if !strings.Contains(last, "Career stage: faculty") {
		t.Error("prompt missing profile summary")
	}
}

func TestGenerateCancellationReturnsPartialDocument(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// Cancel while OVERVIEW is in flight; the call completes, then the
	// machine observes the cancellation before SIGNIFICANCE.
	client := &cancelingClient{cancel: cancel, after: 1}
	g := newTestGenerator(client)

	doc, err := g.Generate(ctx, draftProfile(), draftOpportunity())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	if len(doc.Sections) != len(model.SectionOrder) {
		t.Fatalf("sections = %d, want all slots present", len(doc.Sections))
	}
	if s := doc.Section(model.SectionOverview); s.Status != model.SectionOK {
		t.Errorf("OVERVIEW status = %s, want OK (completed before cancel)", s.Status)
	}
	for _, kind := range model.SectionOrder[1:] {
		if s := doc.Section(kind); s.Status != model.SectionFailed {
			t.Errorf("section %s status = %s, want FAILED after cancel", kind, s.Status)
		}
	}
	if got := client.calls.Load(); got != 1 {
		t.Errorf("calls after cancel = %d, want 1 (no new call started)", got)
	}
}

func TestGenerateNilCaller(t *testing.T) {
	g := New(nil, zap.NewNop())

	doc, err := g.Generate(context.Background(), draftProfile(), draftOpportunity())
	if !errors.Is(err, ErrNoClient) {
		t.Fatalf("err = %v, want ErrNoClient", err)
	}
	if len(doc.Sections) != len(model.SectionOrder) {
		t.Errorf("sections = %d, want all slots present", len(doc.Sections))
	}
	for _, s := range doc.Sections {
		if s.Status != model.SectionFailed {
			t.Errorf("section %s status = %s, want FAILED", s.Kind, s.Status)
		}
	}
}
