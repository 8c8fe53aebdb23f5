package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/mfadeev/grantmatch/internal/worker"
)

const (
	maxRetries  = 2
	backoffBase = time.Second
)

// Caller wraps a Client with the engine's call policy: every request passes
// through the shared gate, transient failures are retried up to maxRetries
// times with exponential backoff, and the per-call check hook runs inside
// the retry loop so malformed output is retried like a transport fault.
type Caller struct {
	client Client
	gate   *worker.Gate

	// Sleep performs the backoff pause, replaceable in tests
	Sleep func(time.Duration)
}

// NewCaller wraps client. A nil gate skips traffic bounding; client must not
// be nil.
func NewCaller(client Client, gate *worker.Gate) *Caller {
	return &Caller{
		client: client,
		gate:   gate,
		Sleep:  time.Sleep,
	}
}

// Name returns the wrapped client's name
func (c *Caller) Name() string {
	return c.client.Name()
}

// Call performs one gated, retried request. check validates the response
// before it is accepted; a check failure consumes an attempt. Cancellation
// is observed before each attempt; the in-flight call is left to finish or
// time out on its own.
func (c *Caller) Call(ctx context.Context, req Request, check func(*Response) error) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			c.Sleep(time.Duration(1<<uint(attempt-1)) * backoffBase)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := c.generate(ctx, req)
		if err != nil {
			if !IsTransient(err) {
				return nil, err
			}
			lastErr = err
			continue
		}

		if check != nil {
			if err := check(resp); err != nil {
				lastErr = err
				continue
			}
		}
		return resp, nil
	}

	return nil, fmt.Errorf("after %d attempts: %w", maxRetries+1, lastErr)
}

func (c *Caller) generate(ctx context.Context, req Request) (*Response, error) {
	if c.gate != nil {
		if err := c.gate.Acquire(ctx); err != nil {
			return nil, err
		}
		defer c.gate.Release()
	}
	return c.client.Generate(ctx, req)
}
