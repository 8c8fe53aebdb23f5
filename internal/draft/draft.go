package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mfadeev/grantmatch/internal/llm"
	"github.com/mfadeev/grantmatch/internal/logger"
	"github.com/mfadeev/grantmatch/internal/model"
)

// ErrNoClient is returned when draft generation is requested without a
// text-generation client configured
var ErrNoClient = errors.New("draft generation requires a text-generation client")

const sectionMaxTokens = 600

const systemPrompt = `You are a grant-writing assistant drafting a proposal outline for a researcher. Write plain prose for the requested section only. No markdown headings, no preamble, no closing remarks.`

// sectionBriefs carries the writing instruction per section, matching the
// outline protocol the drafts follow
var sectionBriefs = map[model.SectionKind]string{
	model.SectionOverview:     "Write a project overview of roughly 200 words connecting the researcher's expertise to the opportunity's stated goals.",
	model.SectionSignificance: "Describe the significance of the proposed work: one short paragraph on intellectual merit, one on broader impacts.",
	model.SectionApproach:     "Lay out the technical approach as 2-3 specific aims, each with its methods and main risks.",
	model.SectionTimeline:     "Sketch a work plan by project year with the key milestones.",
	model.SectionBudgetNote:   "Write a short budget note outlining the major cost categories, consistent with the stated award ceiling when one is given.",
}

// Generator drives the text-generation service through the fixed section
// sequence of a proposal outline. Sections within one document are strictly
// sequential: each prompt carries the text of every section completed before
// it, so later sections stay consistent with earlier ones.
type Generator struct {
	caller *llm.Caller
	logger *zap.Logger
}

// New builds a generator around caller. A nil caller makes Generate return
// an all-FAILED document with ErrNoClient.
func New(caller *llm.Caller, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{caller: caller, logger: log}
}

// Generate drafts one document. A failed section keeps empty text and status
// FAILED and the machine advances regardless; the document always comes back
// with all five section slots. Cancellation between sections leaves the
// remaining sections FAILED and returns the partial document with the
// context error.
func (g *Generator) Generate(ctx context.Context, profile *model.ResearcherProfile, opp *model.Opportunity) (*model.DraftDocument, error) {
	doc := model.NewDraftDocument(opp)
	if g.caller == nil {
		return doc, ErrNoClient
	}

	oppContext := opportunityContext(opp)
	summary := profile.Summary()

	for _, kind := range model.SectionOrder {
		if err := ctx.Err(); err != nil {
			g.logger.Warn("draft canceled, returning partial document",
				zap.String("opportunity", opp.Key()),
				zap.String("pending_section", string(kind)))
			return doc, err
		}

		text, err := g.generateSection(ctx, oppContext, summary, doc, kind)
		if err != nil {
			g.logger.Warn("section generation failed, advancing",
				zap.String("opportunity", opp.Key()),
				zap.String("section", string(kind)),
				zap.Error(err))
			continue
		}

		section := doc.Section(kind)
		section.Text = text
		section.Status = model.SectionOK

		g.logger.Debug("section generated",
			zap.String("opportunity", opp.Key()),
			zap.String("section", string(kind)),
			zap.String("preview", logger.Truncate(text, 80)))
	}

	return doc, nil
}

// generateSection performs the gated, retried call for one section
func (g *Generator) generateSection(ctx context.Context, oppContext, summary string, doc *model.DraftDocument, kind model.SectionKind) (string, error) {
	req := llm.Request{
		System:    systemPrompt,
		Prompt:    buildSectionPrompt(oppContext, summary, doc, kind),
		MaxTokens: sectionMaxTokens,
	}

	resp, err := g.caller.Call(ctx, req, func(r *llm.Response) error {
		if strings.TrimSpace(r.Text) == "" {
			return fmt.Errorf("%w: blank section text", llm.ErrEmptyResponse)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// buildSectionPrompt seeds a section request with the opportunity context,
// the profile summary and every previously completed section
func buildSectionPrompt(oppContext, summary string, doc *model.DraftDocument, kind model.SectionKind) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Funding opportunity:\n%s\n\n", oppContext)
	fmt.Fprintf(&b, "Researcher profile:\n%s\n\n", summary)

	var done []model.DraftSection
	for _, s := range doc.Sections {
		if s.Status == model.SectionOK {
			done = append(done, s)
		}
	}
	if len(done) > 0 {
		b.WriteString("Sections drafted so far:\n")
		for _, s := range done {
			fmt.Fprintf(&b, "[%s]\n%s\n\n", s.Kind, s.Text)
		}
	}

	fmt.Fprintf(&b, "Section to write now: %s. %s", kind, sectionBriefs[kind])
	return b.String()
}

// opportunityContext renders the opportunity fields seeded into every
// section prompt. Absent optional fields are left out rather than shown as
// zero values.
func opportunityContext(opp *model.Opportunity) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Agency: %s\nTitle: %s\n", opp.Agency, opp.Title)
	if opp.Synopsis != "" {
		fmt.Fprintf(&b, "Synopsis: %s\n", opp.Synopsis)
	}
	if opp.Eligibility != "" {
		fmt.Fprintf(&b, "Eligibility: %s\n", opp.Eligibility)
	}
	if opp.AwardCeiling != nil {
		fmt.Fprintf(&b, "Award ceiling: $%.0f\n", *opp.AwardCeiling)
	}
	if opp.Deadline != nil {
		fmt.Fprintf(&b, "Deadline: %s\n", opp.Deadline.Format(time.DateOnly))
	}

	return strings.TrimRight(b.String(), "\n")
}
