package judge

import "sync/atomic"

// Budget caps judge invocations for one matching session. One slot is spent
// per judged opportunity, not per retry; claimed slots are never returned.
// Safe for concurrent use.
type Budget struct {
	remaining atomic.Int64
}

// NewBudget allows up to n judge calls. Zero or negative n yields an
// exhausted budget, which skips judging entirely.
func NewBudget(n int) *Budget {
	b := &Budget{}
	if n > 0 {
		b.remaining.Store(int64(n))
	}
	return b
}

// TryAcquire claims one slot, reporting false once the budget is spent
func (b *Budget) TryAcquire() bool {
	for {
		cur := b.remaining.Load()
		if cur <= 0 {
			return false
		}
		if b.remaining.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

// Remaining reports how many slots are still unclaimed
func (b *Budget) Remaining() int {
	if n := b.remaining.Load(); n > 0 {
		return int(n)
	}
	return 0
}
