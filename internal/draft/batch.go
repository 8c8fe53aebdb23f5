package draft

import (
	"context"

	"github.com/mfadeev/grantmatch/internal/model"
	"github.com/mfadeev/grantmatch/internal/worker"
)

// Result is the outcome of drafting one opportunity. Document is never nil:
// a canceled or failed run still carries all five section slots.
type Result struct {
	Document *model.DraftDocument
	Error    error
}

// Err satisfies worker.Result
func (r *Result) Err() error {
	return r.Error
}

// job drafts one document on a pool worker. Sections inside the job stay
// strictly sequential; only documents run in parallel.
type job struct {
	index     int
	generator *Generator
	profile   *model.ResearcherProfile
	opp       *model.Opportunity
}

func (j *job) Execute(ctx context.Context) worker.Result {
	doc, err := j.generator.Generate(ctx, j.profile, j.opp)
	return &indexedResult{index: j.index, result: Result{Document: doc, Error: err}}
}

type indexedResult struct {
	index  int
	result Result
}

func (r *indexedResult) Err() error {
	return r.result.Error
}

// GenerateBatch drafts a document per opportunity across a bounded pool of
// workers, all sharing the generator's gate to the text-generation service.
// Results come back in input order. Opportunities the pool never reached
// (canceled runs) get an all-FAILED document with the context error, so the
// batch is complete either way.
func (g *Generator) GenerateBatch(ctx context.Context, profile *model.ResearcherProfile, opps []*model.Opportunity, workers int) []*Result {
	if len(opps) == 0 {
		return nil
	}

	pool := worker.NewPool(ctx, workers)
	pool.Start()

	for i, opp := range opps {
		pool.Submit(&job{index: i, generator: g, profile: profile, opp: opp})
	}

	results := make([]*Result, len(opps))
	for _, res := range pool.Wait() {
		ir := res.(*indexedResult)
		r := ir.result
		results[ir.index] = &r
	}

	for i, r := range results {
		if r == nil {
			results[i] = &Result{
				Document: model.NewDraftDocument(opps[i]),
				Error:    ctx.Err(),
			}
		}
	}

	return results
}
