package worker

import (
	"context"

	"golang.org/x/time/rate"
)

// Gate bounds traffic to the text-generation service: a semaphore caps
// outstanding calls and a token bucket smooths the request rate. One gate is
// shared by every collaborator talking to the service, so a single external
// quota is respected no matter how many goroutines are calling.
type Gate struct {
	sem     chan struct{}
	limiter *rate.Limiter
}

// NewGate creates a gate allowing maxConcurrent outstanding calls at
// requestsPerSecond with the given burst. A non-positive rate disables
// smoothing and only the semaphore applies.
func NewGate(maxConcurrent int, requestsPerSecond float64, burst int) *Gate {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}

	return &Gate{
		sem:     make(chan struct{}, maxConcurrent),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Acquire blocks until a concurrency slot and a rate token are both
// available. Callers must Release when their call finishes.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := g.limiter.Wait(ctx); err != nil {
		<-g.sem
		return err
	}
	return nil
}

// Release frees the slot taken by Acquire
func (g *Gate) Release() {
	<-g.sem
}
