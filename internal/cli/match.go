package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mfadeev/grantmatch/internal/logger"
	"github.com/mfadeev/grantmatch/internal/model"
	"github.com/mfadeev/grantmatch/internal/pipeline"
)

var (
	recordsPath  string
	profilePath  string
	workers      int
	matchTimeout time.Duration

	embeddingProvider string
	noCache           bool

	llmEnabled  bool
	llmProvider string
	llmModel    string
	maxLLMCalls int

	careerStage       string
	minAwardCeiling   float64
	maxDaysToDeadline int
	minScore          float64

	topN      int
	outFormat string
	outPath   string
)

// matchCmd represents the match command
var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match a researcher profile against funding opportunities",
	Long: `Match scores every supplied funding opportunity against a researcher
profile and prints a ranked list:
- Normalize raw agency records (NSF, DOE, GRANTS_GOV, OTHER)
- Build the researcher profile from publications and proposals
- Score topical similarity with deterministic embeddings
- Optionally refine the strongest candidates with an LLM fit judge
- Apply hard filters and rank

Example:
  grantmatch match --records records.json --profile profile.yaml
  grantmatch match --records records.json --profile profile.yaml --top 10 --format markdown
  grantmatch match --records records.json --profile profile.yaml --llm --max-llm-calls 5`,
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	// Input flags
	matchCmd.Flags().StringVar(&recordsPath, "records", "", "opportunity records file (JSON array of {agency, payload})")
	matchCmd.Flags().StringVar(&profilePath, "profile", "", "researcher profile file (YAML)")
	_ = matchCmd.MarkFlagRequired("records")
	_ = matchCmd.MarkFlagRequired("profile")

	// Engine flags
	matchCmd.Flags().IntVar(&workers, "workers", 8, "number of concurrent workers")
	matchCmd.Flags().DurationVar(&matchTimeout, "timeout", 5*time.Minute, "overall match timeout")
	matchCmd.Flags().StringVar(&embeddingProvider, "embedding", "hashing", "embedding provider (hashing, openai)")
	matchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the embedding cache")

	// LLM flags
	matchCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable the LLM fit judge")
	matchCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	matchCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
	matchCmd.Flags().IntVar(&maxLLMCalls, "max-llm-calls", 10, "fit-judge call budget per session")

	// Filter flags
	matchCmd.Flags().StringVar(&careerStage, "career-stage", "", "career stage (faculty, postdoc, student); overrides the profile file")
	matchCmd.Flags().Float64Var(&minAwardCeiling, "min-award-ceiling", 0, "drop opportunities whose stated award ceiling is below this")
	matchCmd.Flags().IntVar(&maxDaysToDeadline, "max-days-to-deadline", 0, "drop opportunities whose stated deadline is further out than this many days")
	matchCmd.Flags().Float64Var(&minScore, "min-score", 0, "drop opportunities scoring below this")

	// Output flags
	matchCmd.Flags().IntVar(&topN, "top", 20, "rows shown in table output")
	matchCmd.Flags().StringVar(&outFormat, "format", "table", "output format (table, json, markdown)")
	matchCmd.Flags().StringVar(&outPath, "output", "", "output path (default: stdout)")
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), matchTimeout)
	defer cancel()

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
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

	if verbose {
		fmt.Fprintf(os.Stderr, "Matching %d records against profile %s\n", len(records), profileID)
		fmt.Fprintf(os.Stderr, "Embedding: %s\n", cfg.Embedding.Provider)
		if cfg.LLM.Enabled {
			fmt.Fprintf(os.Stderr, "Fit judge: %s/%s, budget %d\n", cfg.LLM.Provider, cfg.LLM.Model, cfg.Judge.MaxLLMCalls)
		}
		fmt.Fprintln(os.Stderr)
	}
	if len(docs) == 0 {
		fmt.Fprintf(os.Stderr, "✗ profile has no documents; every opportunity scores at the neutral baseline\n")
	}

	engine, err := pipeline.New(&cfg, log)
	if err != nil {
		return err
	}

	result, err := engine.Match(ctx, pipeline.MatchRequest{
		ProfileID:   profileID,
		CareerStage: stage,
		Documents:   docs,
		Records:     records,
	})
	if err != nil {
		if result == nil || !isInterrupted(err) {
			return fmt.Errorf("match failed: %w", err)
		}
		// Interrupted mid-pipeline: the partial ranking is still shown.
		fmt.Fprintf(os.Stderr, "✗ interrupted after scoring %d opportunities; results are partial\n\n", result.Scored)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Scored %d opportunities\n", result.Scored)
		fmt.Fprintf(os.Stderr, "✓ Judged %d candidates\n", result.Judged)
		if len(result.Skipped) > 0 {
			fmt.Fprintf(os.Stderr, "✗ Skipped %d malformed records\n", len(result.Skipped))
		}
		fmt.Fprintln(os.Stderr)
	}

	return renderMatches(result)
}

// renderMatches writes the ranked result in the selected format
func renderMatches(result *pipeline.MatchResult) error {
	out := io.Writer(os.Stdout)
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	renderer := pipeline.NewRenderer()
	switch outFormat {
	case "table":
		return renderer.MatchesTable(out, result, topN)
	case "json":
		return renderer.MatchesJSON(out, result)
	case "markdown", "md":
		return renderer.MatchesMarkdown(out, result)
	default:
		return fmt.Errorf("unknown output format: %s (supported: table, json, markdown)", outFormat)
	}
}

// buildConfig assembles the engine configuration: defaults, config file and
// environment via loadConfig, then explicit flag overrides
func buildConfig(cmd *cobra.Command) (model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Concurrency.Workers = workers
	}
	if flags.Changed("embedding") {
		cfg.Embedding.Provider = embeddingProvider
	}
	if flags.Changed("no-cache") {
		cfg.Cache.Enabled = !noCache
	}
	if flags.Changed("llm") {
		cfg.LLM.Enabled = llmEnabled
	}
	if flags.Changed("llm-provider") {
		cfg.LLM.Provider = llmProvider
	}
	if flags.Changed("llm-model") {
		cfg.LLM.Model = llmModel
	}
	if flags.Changed("max-llm-calls") {
		cfg.Judge.MaxLLMCalls = maxLLMCalls
	}
	if flags.Changed("min-award-ceiling") {
		v := minAwardCeiling
		cfg.Filters.MinAwardCeiling = &v
	}
	if flags.Changed("max-days-to-deadline") {
		v := maxDaysToDeadline
		cfg.Filters.MaxDaysToDeadline = &v
	}
	if flags.Changed("min-score") {
		v := minScore
		cfg.Filters.MinFinalScore = &v
	}

	cfg.Output.Verbose = verbose
	if jsonLogs {
		cfg.Output.JSONLogs = true
	}
	return cfg, nil
}

// applyEnvKeys pulls provider credentials from the environment. API keys
// never come from the config file.
func applyEnvKeys(cfg *model.Config) error {
	if cfg.LLM.Enabled {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
			if cfg.LLM.APIKey == "" {
				return fmt.Errorf("OPENAI_API_KEY environment variable not set")
			}
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
			if cfg.LLM.APIKey == "" {
				return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
			}
		case "ollama":
			// Ollama doesn't need an API key
			if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
				cfg.LLM.BaseURL = baseURL
			}
		}
	}

	if cfg.Embedding.Provider == "openai" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.Embedding.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}
	return nil
}

// resolveStage picks the career stage: explicit flag, then the profile file,
// then the configured default
func resolveStage(cmd *cobra.Command, fileStage model.CareerStage, cfg *model.Config) model.CareerStage {
	if cmd.Flags().Changed("career-stage") {
		return model.ParseCareerStage(careerStage)
	}
	if fileStage != model.CareerUnspecified {
		return fileStage
	}
	return model.ParseCareerStage(cfg.Eligibility.CareerStage)
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
