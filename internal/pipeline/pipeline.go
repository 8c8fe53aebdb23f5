package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mfadeev/grantmatch/internal/cache"
	"github.com/mfadeev/grantmatch/internal/draft"
	"github.com/mfadeev/grantmatch/internal/embed"
	"github.com/mfadeev/grantmatch/internal/judge"
	"github.com/mfadeev/grantmatch/internal/llm"
	"github.com/mfadeev/grantmatch/internal/model"
	"github.com/mfadeev/grantmatch/internal/normalize"
	"github.com/mfadeev/grantmatch/internal/profile"
	"github.com/mfadeev/grantmatch/internal/rank"
	"github.com/mfadeev/grantmatch/internal/score"
	"github.com/mfadeev/grantmatch/internal/worker"
)

// ErrNoOpportunities is the hard failure for a batch in which no record
// survived normalization. Anything less than that degrades per record.
var ErrNoOpportunities = errors.New("no opportunities to match")

// Engine wires the matching pipeline: normalization, profile building,
// similarity scoring, fit judging, ranking and draft generation. One engine
// serves one configuration; matching sessions are independent Match calls.
type Engine struct {
	cfg      *model.Config
	logger   *zap.Logger
	registry *normalize.Registry
	builder  *profile.Builder
	scorer   *score.Scorer
	judge    *judge.Judge
	ranker   *rank.Ranker
	drafter  *draft.Generator

	// caller is nil when text generation is disabled; the judge then skips
	// every candidate and drafting is unavailable.
	caller *llm.Caller
}

type options struct {
	client    llm.Client
	clientSet bool
	embedder  embed.Embedder
}

// Option adjusts engine construction
type Option func(*options)

// WithClient substitutes the text-generation client, bypassing the provider
// factory. WithClient(nil) forces text generation off regardless of config.
func WithClient(c llm.Client) Option {
	return func(o *options) {
		o.client = c
		o.clientSet = true
	}
}

// WithEmbedder substitutes the embedder, bypassing provider and cache setup
func WithEmbedder(e embed.Embedder) Option {
	return func(o *options) {
		o.embedder = e
	}
}

// New builds an engine from configuration. The judge and the draft
// generator share one gate to the text-generation service, so the
// configured rate limit holds across both.
func New(cfg *model.Config, log *zap.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		def := model.DefaultConfig()
		cfg = &def
	}
	if log == nil {
		log = zap.NewNop()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	embedder := o.embedder
	if embedder == nil {
		var store cache.Cache
		if cfg.Cache.Enabled {
			if cfg.Cache.Dir != "" {
				store = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
			} else {
				store = cache.NewMemoryCache(cfg.Cache.MemoryTTL, 2*cfg.Cache.MemoryTTL)
			}
		}
		built, err := embed.New(cfg, store)
		if err != nil {
			return nil, fmt.Errorf("build embedder: %w", err)
		}
		embedder = built
	}

	client := o.client
	if !o.clientSet {
		built, err := llm.NewClient(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			return nil, fmt.Errorf("build text-generation client: %w", err)
		}
		client = built
	}

	var caller *llm.Caller
	if client != nil {
		gate := worker.NewGate(cfg.RateLimit.MaxConcurrent, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		caller = llm.NewCaller(client, gate)
		log.Debug("text generation enabled",
			zap.String("client", client.Name()),
			zap.Int("max_concurrent", cfg.RateLimit.MaxConcurrent))
	}

	return &Engine{
		cfg:      cfg,
		logger:   log,
		registry: normalize.NewRegistry(),
		builder:  profile.NewBuilder(embedder, cfg.Concurrency.Workers),
		scorer:   score.NewScorer(embedder, score.NewEligibilityScreen(cfg.Eligibility.Disqualifiers), cfg.Concurrency.Workers),
		judge:    judge.New(caller, cfg.Concurrency.Workers, log),
		ranker:   rank.New(cfg.Filters, log),
		drafter:  draft.New(caller, log),
		caller:   caller,
	}, nil
}

// MatchRequest is one matching session's input: the researcher's documents
// and the raw opportunity records, both supplied by collaborators.
type MatchRequest struct {
	ProfileID   string
	CareerStage model.CareerStage
	Documents   []model.SourceDocument
	Records     []normalize.RawRecord

	// RequireDocuments makes an empty document set a hard error instead of
	// a valid neutral-baseline profile.
	RequireDocuments bool
}

// MatchResult is the session outcome. Ranked carries every opportunity that
// survived normalization and the hard filters, judged or not.
type MatchResult struct {
	Profile *model.ResearcherProfile
	Ranked  *model.RankedResult
	Skipped []normalize.Skip
	Scored  int
	Judged  int
}

// Match runs the pipeline end to end. Per-record and per-call failures
// degrade (skipped records, similarity-only scores); only unusable input is
// a hard error. On cancellation the opportunities scored so far are ranked
// and returned together with the context error.
func (e *Engine) Match(ctx context.Context, req MatchRequest) (*MatchResult, error) {
	// 1. Normalize the raw records, skipping malformed ones.
	opps, skipped := e.registry.Batch(req.Records)
	for _, s := range skipped {
		e.logger.Warn("skipping malformed record",
			zap.Int("index", s.Index),
			zap.String("agency", string(s.Agency)),
			zap.Error(s.Err))
	}
	if len(opps) == 0 {
		return nil, ErrNoOpportunities
	}
	e.logger.Debug("normalized records",
		zap.Int("opportunities", len(opps)),
		zap.Int("skipped", len(skipped)))

	// 2. Build the researcher profile.
	if req.RequireDocuments && len(req.Documents) == 0 {
		return nil, profile.ErrNoDocuments
	}
	prof, err := e.builder.Build(ctx, req.ProfileID, req.CareerStage, req.Documents)
	if err != nil {
		return nil, fmt.Errorf("build profile: %w", err)
	}

	result := &MatchResult{Profile: prof, Skipped: skipped}

	// 3. Score similarity in parallel.
	scored, err := e.scorer.ScoreAll(ctx, prof, opps)
	result.Scored = len(scored)
	if err != nil {
		if isCancellation(err) {
			result.Ranked = e.ranker.Rank(scored)
			return result, err
		}
		return nil, fmt.Errorf("score opportunities: %w", err)
	}

	// 4. Judge the strongest candidates within the call budget. The judge
	// never fails the match; candidates degrade to similarity-only.
	if e.caller != nil && e.cfg.Judge.MaxLLMCalls > 0 {
		budget := judge.NewBudget(e.cfg.Judge.MaxLLMCalls)
		result.Judged = e.judge.JudgeAll(ctx, prof, scored, budget)
	}

	// 5. Rank with hard filters.
	result.Ranked = e.ranker.Rank(scored)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// Draft generates the outline document for one opportunity
func (e *Engine) Draft(ctx context.Context, prof *model.ResearcherProfile, opp *model.Opportunity) (*model.DraftDocument, error) {
	if e.caller == nil {
		return nil, draft.ErrNoClient
	}
	return e.drafter.Generate(ctx, prof, opp)
}

// DraftTop drafts the n best-ranked opportunities in parallel, sections
// within each document staying sequential
func (e *Engine) DraftTop(ctx context.Context, prof *model.ResearcherProfile, ranked *model.RankedResult, n int) ([]*draft.Result, error) {
	if e.caller == nil {
		return nil, draft.ErrNoClient
	}

	top := ranked.Top(n)
	opps := make([]*model.Opportunity, len(top))
	for i, item := range top {
		opps[i] = item.Opportunity
	}
	return e.drafter.GenerateBatch(ctx, prof, opps, e.cfg.Concurrency.Workers), nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
