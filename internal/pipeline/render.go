package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mfadeev/grantmatch/internal/logger"
	"github.com/mfadeev/grantmatch/internal/model"
)

// Renderer serializes match results and draft documents for presentation
// and export collaborators
type Renderer struct{}

// NewRenderer creates a renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// matchExport is the flat JSON shape consumed by UIs and exports
type matchExport struct {
	ProfileID      string               `json:"profile_id"`
	Scored         int                  `json:"scored"`
	Judged         int                  `json:"judged"`
	SkippedRecords int                  `json:"skipped_records"`
	Records        []model.RankedRecord `json:"records"`
}

// MatchesJSON writes the ranked result as an indented JSON document
func (r *Renderer) MatchesJSON(w io.Writer, result *MatchResult) error {
	export := matchExport{
		ProfileID:      result.Profile.ID,
		Scored:         result.Scored,
		Judged:         result.Judged,
		SkippedRecords: len(result.Skipped),
		Records:        result.Ranked.Records(),
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal matches: %w", err)
	}
	data = append(data, '\n')

	_, err = w.Write(data)
	return err
}

// MatchesMarkdown writes the ranked result as a Markdown report
func (r *Renderer) MatchesMarkdown(w io.Writer, result *MatchResult) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Funding matches — %s\n\n", result.Profile.ID)
	fmt.Fprintf(&b, "%d opportunities scored, %d judged, %d records skipped.\n\n",
		result.Scored, result.Judged, len(result.Skipped))

	records := result.Ranked.Records()
	if len(records) == 0 {
		b.WriteString("No opportunities passed the filters.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString("| Rank | Agency | Opportunity | Title | Score | Deadline | Basis |\n")
	b.WriteString("|-----:|--------|-------------|-------|------:|----------|-------|\n")
	for _, rec := range records {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %.3f | %s | %s |\n",
			rec.Rank, rec.Agency, rec.ID, rec.Title, rec.FinalScore,
			orDash(rec.Deadline), basis(rec))
	}

	var rationales []model.RankedRecord
	for _, rec := range records {
		if rec.Rationale != "" {
			rationales = append(rationales, rec)
		}
	}
	if len(rationales) > 0 {
		b.WriteString("\n## Why these fit\n\n")
		for _, rec := range rationales {
			fmt.Fprintf(&b, "**%d. %s** — %s\n\n", rec.Rank, rec.Title, rec.Rationale)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// MatchesTable writes up to top rows as a fixed-width console table
func (r *Renderer) MatchesTable(w io.Writer, result *MatchResult, top int) error {
	records := result.Ranked.Records()
	if top > 0 && len(records) > top {
		records = records[:top]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%4s  %-5s  %-10s  %-22s  %-10s  %-15s  %s\n",
		"RANK", "SCORE", "AGENCY", "ID", "DEADLINE", "BASIS", "TITLE")
	for _, rec := range records {
		fmt.Fprintf(&b, "%4d  %.3f  %-10s  %-22s  %-10s  %-15s  %s\n",
			rec.Rank, rec.FinalScore, rec.Agency,
			logger.Truncate(rec.ID, 22), orDash(rec.Deadline),
			basis(rec), logger.Truncate(rec.Title, 60))
	}
	fmt.Fprintf(&b, "\n%d of %d shown; %d judged, %d records skipped.\n",
		len(records), result.Ranked.Len(), result.Judged, len(result.Skipped))

	_, err := io.WriteString(w, b.String())
	return err
}

// DraftJSON writes a draft document as indented JSON, all five section
// slots present with their status
func (r *Renderer) DraftJSON(w io.Writer, doc *model.DraftDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	data = append(data, '\n')

	_, err = w.Write(data)
	return err
}

// DraftMarkdown writes a draft document as a Markdown outline. Failed
// sections keep their heading with a regenerate note, so partial documents
// stay editable rather than silently shrinking.
func (r *Renderer) DraftMarkdown(w io.Writer, doc *model.DraftDocument) error {
	opp := doc.Opportunity

	var b strings.Builder
	fmt.Fprintf(&b, "# Proposal outline — %s\n\n", opp.Title)

	meta := []string{
		fmt.Sprintf("Agency: %s", opp.Agency),
		fmt.Sprintf("Opportunity: %s", opp.ID),
	}
	if opp.AwardCeiling != nil {
		meta = append(meta, fmt.Sprintf("Award ceiling: $%.0f", *opp.AwardCeiling))
	}
	if opp.Deadline != nil {
		meta = append(meta, fmt.Sprintf("Deadline: %s", opp.Deadline.Format(time.DateOnly)))
	}
	fmt.Fprintf(&b, "%s\n", strings.Join(meta, " | "))

	for _, section := range doc.Sections {
		fmt.Fprintf(&b, "\n## %s\n\n", sectionTitles[section.Kind])
		if section.Status == model.SectionOK {
			fmt.Fprintf(&b, "%s\n", section.Text)
		} else {
			b.WriteString("_Generation failed for this section; regenerate it individually._\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

var sectionTitles = map[model.SectionKind]string{
	model.SectionOverview:     "Overview",
	model.SectionSignificance: "Significance",
	model.SectionApproach:     "Approach",
	model.SectionTimeline:     "Timeline",
	model.SectionBudgetNote:   "Budget Note",
}

func basis(rec model.RankedRecord) string {
	if rec.SimilarityOnly {
		return "similarity-only"
	}
	return "judged"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
