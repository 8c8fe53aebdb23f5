package judge

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestBudgetSequential(t *testing.T) {
	b := NewBudget(3)
	for i := 0; i < 3; i++ {
		if !b.TryAcquire() {
			t.Fatalf("acquire %d refused", i)
		}
	}
	if b.TryAcquire() {
		t.Error("acquire succeeded past the budget")
	}
	if got := b.Remaining(); got != 0 {
		t.Errorf("Remaining() = %d, want 0", got)
	}
}

func TestBudgetRemainingCountsDown(t *testing.T) {
	b := NewBudget(2)
	if got := b.Remaining(); got != 2 {
		t.Fatalf("Remaining() = %d, want 2", got)
	}
	b.TryAcquire()
	if got := b.Remaining(); got != 1 {
		t.Errorf("Remaining() = %d, want 1", got)
	}
}

func TestBudgetZeroAndNegative(t *testing.T) {
	for _, n := range []int{0, -5} {
		b := NewBudget(n)
		if b.TryAcquire() {
			t.Errorf("NewBudget(%d) allowed an acquire", n)
		}
		if got := b.Remaining(); got != 0 {
			t.Errorf("NewBudget(%d).Remaining() = %d, want 0", n, got)
		}
	}
}

func TestBudgetConcurrentExactness(t *testing.T) {
	const slots = 10
	const contenders = 50

	b := NewBudget(slots)

	var wg sync.WaitGroup
	var granted atomic.Int64
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.TryAcquire() {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := granted.Load(); got != slots {
		t.Errorf("granted %d slots, want exactly %d", got, slots)
	}
	if got := b.Remaining(); got != 0 {
		t.Errorf("Remaining() = %d, want 0", got)
	}
}
