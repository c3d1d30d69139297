package portfolio

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func TestApplyAccumulatesDeltas(t *testing.T) {
	l := NewLedger()
	l.Apply("005930", decimal.NewFromInt(5))
	l.Apply("005930", decimal.NewFromInt(-2))

	if got := l.Quantity("005930"); !got.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Expected quantity 3, got %s", got)
	}
}

func TestQuantityOfUnknownSymbolIsZero(t *testing.T) {
	l := NewLedger()
	if !l.Quantity("NONE").IsZero() {
		t.Error("Expected zero quantity for unknown symbol")
	}
	if l.Has("NONE") {
		t.Error("Expected no entry to be created by a read")
	}
}

func TestSnapshotSortedBySymbol(t *testing.T) {
	l := NewLedger()
	l.Apply("B", decimal.NewFromInt(1))
	l.Apply("A", decimal.NewFromInt(2))

	snap := l.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(snap))
	}
	if snap[0].Symbol != "A" || snap[1].Symbol != "B" {
		t.Errorf("Expected sorted symbols, got %s, %s", snap[0].Symbol, snap[1].Symbol)
	}
}

func TestConcurrentApply(t *testing.T) {
	l := NewLedger()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Apply("X", decimal.NewFromInt(1))
		}()
	}
	wg.Wait()

	if got := l.Quantity("X"); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected 100 after concurrent applies, got %s", got)
	}
}
