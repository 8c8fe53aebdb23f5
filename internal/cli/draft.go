package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mfadeev/grantmatch/internal/draft"
	"github.com/mfadeev/grantmatch/internal/logger"
	"github.com/mfadeev/grantmatch/internal/model"
	"github.com/mfadeev/grantmatch/internal/pipeline"
)

var (
	draftTop     int
	pickKey      string
	outputDir    string
	draftTimeout time.Duration
)

// draftCmd represents the draft command
var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Draft proposal outlines for the best-matching opportunities",
	Long: `Draft runs a full matching session, then generates a five-section
proposal outline (overview, significance, approach, timeline, budget
note) for each of the leading opportunities:
- Sections are generated in order, each seeded with the completed ones
- A failed section keeps its slot; the rest of the document continues
- Every outline is written as Markdown plus JSON

Drafting calls the text-generation service and needs provider
credentials in the environment.

Example:
  grantmatch draft --records records.json --profile profile.yaml
  grantmatch draft --records records.json --profile profile.yaml --top 3 --output-dir ./drafts
  grantmatch draft --records records.json --profile profile.yaml --pick NSF/nsf-26-551`,
	RunE: runDraft,
}

func init() {
	rootCmd.AddCommand(draftCmd)

	// Input flags
	draftCmd.Flags().StringVar(&recordsPath, "records", "", "opportunity records file (JSON array of {agency, payload})")
	draftCmd.Flags().StringVar(&profilePath, "profile", "", "researcher profile file (YAML)")
	_ = draftCmd.MarkFlagRequired("records")
	_ = draftCmd.MarkFlagRequired("profile")

	// Selection flags
	draftCmd.Flags().IntVar(&draftTop, "top", 1, "number of leading matches to draft")
	draftCmd.Flags().StringVar(&pickKey, "pick", "", "draft one specific opportunity (AGENCY/ID)")
	draftCmd.Flags().StringVar(&outputDir, "output-dir", "./grantmatch-drafts", "output directory for drafts")
	draftCmd.Flags().DurationVar(&draftTimeout, "timeout", 10*time.Minute, "total timeout for matching and drafting")

	// Engine flags
	draftCmd.Flags().IntVar(&workers, "workers", 8, "number of concurrent workers")
	draftCmd.Flags().StringVar(&embeddingProvider, "embedding", "hashing", "embedding provider (hashing, openai)")
	draftCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the embedding cache")
	draftCmd.Flags().StringVar(&careerStage, "career-stage", "", "career stage (faculty, postdoc, student); overrides the profile file")

	// LLM flags; drafting always talks to the service
	draftCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	draftCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
	draftCmd.Flags().IntVar(&maxLLMCalls, "max-llm-calls", 10, "fit-judge call budget per session")
}

func runDraft(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), draftTimeout)
	defer cancel()

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	cfg.LLM.Enabled = true // drafting always needs the service
	if err := applyEnvKeys(&cfg); err != nil {
		return err
	}

	log, err := logger.New(cfg.Output.JSONLogs, verbose)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	records, err := loadRecords(recordsPath)
	if err != nil {
		return err
	}
	profileID, stage, docs, err := loadProfile(profilePath)
	if err != nil {
		return err
	}
	stage = resolveStage(cmd, stage, &cfg)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  GrantMatch Draft Generation\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Records:      %s\n", recordsPath)
	fmt.Fprintf(os.Stderr, "  Profile:      %s (%s)\n", profileID, profilePath)
	fmt.Fprintf(os.Stderr, "  Service:      %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	engine, err := pipeline.New(&cfg, log)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "⚙️  Matching opportunities...\n")
	result, err := engine.Match(ctx, pipeline.MatchRequest{
		ProfileID:   profileID,
		CareerStage: stage,
		Documents:   docs,
		Records:     records,
	})
	if err != nil {
		return fmt.Errorf("match failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Ranked %d opportunities (%d judged)\n", result.Ranked.Len(), result.Judged)

	var results []*draft.Result
	if pickKey != "" {
		item := findRanked(result.Ranked, pickKey)
		if item == nil {
			return fmt.Errorf("opportunity %s is not in the ranked results", pickKey)
		}
		doc, derr := engine.Draft(ctx, result.Profile, item.Opportunity)
		if doc == nil {
			return derr
		}
		results = []*draft.Result{{Document: doc, Error: derr}}
	} else {
		n := draftTop
		if n > result.Ranked.Len() {
			n = result.Ranked.Len()
		}
		fmt.Fprintf(os.Stderr, "⚙️  Drafting top %d...\n", n)
		results, err = engine.DraftTop(ctx, result.Profile, result.Ranked, draftTop)
		if err != nil {
			return err
		}
	}
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	renderer := pipeline.NewRenderer()
	complete := 0
	failures := 0

	for _, res := range results {
		doc := res.Document
		key := doc.Opportunity.Key()

		slug := sanitizeFilename(string(doc.Opportunity.Agency) + "-" + doc.Opportunity.ID)
		if err := writeDraft(renderer, doc, outputDir, slug); err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", key, err)
			continue
		}

		done := doc.Completed()
		switch {
		case res.Error != nil:
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %d/%d sections (%v)\n", key, done, len(model.SectionOrder), res.Error)
		case done < len(model.SectionOrder):
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %d/%d sections\n", key, done, len(model.SectionOrder))
		default:
			complete++
			fmt.Fprintf(os.Stderr, "✓ %s (%d/%d sections)\n", key, done, len(model.SectionOrder))
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Drafting Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Documents:  %d\n", len(results))
	fmt.Fprintf(os.Stderr, "  Complete:   %d\n", complete)
	fmt.Fprintf(os.Stderr, "  Partial:    %d\n", failures)
	fmt.Fprintf(os.Stderr, "  Output:     %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// writeDraft renders one document as Markdown and JSON under dir
func writeDraft(renderer *pipeline.Renderer, doc *model.DraftDocument, dir, slug string) error {
	md, err := os.Create(filepath.Join(dir, slug+".md"))
	if err != nil {
		return fmt.Errorf("create markdown file: %w", err)
	}
	defer func() { _ = md.Close() }()
	if err := renderer.DraftMarkdown(md, doc); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}

	js, err := os.Create(filepath.Join(dir, slug+".json"))
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer func() { _ = js.Close() }()
	if err := renderer.DraftJSON(js, doc); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// findRanked locates a ranked opportunity by its AGENCY/ID key
func findRanked(ranked *model.RankedResult, key string) *model.ScoredOpportunity {
	for _, item := range ranked.Items {
		if item.Opportunity.Key() == key {
			return item
		}
	}
	return nil
}

// sanitizeFilename makes a string safe to use as a file name
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "-",
	)
	s = replacer.Replace(s)

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
