package worker

import (
	"context"
	"sync"
)

// Job is one unit of work
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of one job
type Result interface {
	Err() error
}

// Pool runs jobs on a fixed set of goroutines. Built for cross-document
// work where each job is internally sequential but jobs are independent of
// each other.
type Pool struct {
	workers   int
	jobs      chan Job
	results   chan Result
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewPool creates a pool of the given width. Cancelling ctx stops workers
// between jobs; in-flight jobs observe it through their own ctx parameter.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	poolCtx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers: workers,
		jobs:    make(chan Job, workers*2),
		results: make(chan Result, workers*2),
		ctx:     poolCtx,
		cancel:  cancel,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			result := job.Execute(p.ctx)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. Submissions after cancellation are dropped.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
	case p.jobs <- job:
	}
}

// Wait closes the queue, waits for the workers to drain it and returns
// everything they produced. Call exactly once, after the last Submit.
func (p *Pool) Wait() []Result {
	close(p.jobs)

	go func() {
		p.wg.Wait()
		p.closeResults()
	}()

	var results []Result
	for result := range p.results {
		results = append(results, result)
	}
	return results
}

// Shutdown cancels outstanding work and waits for the workers to exit
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
