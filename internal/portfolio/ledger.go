package portfolio

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"scenario-advisor/internal/types"
)

// Ledger tracks held quantity per symbol. It is adjusted only by trade
// deltas and never reset. It does not deduplicate: applying the same
// confirmation twice is a caller bug.
type Ledger struct {
	mu       sync.Mutex
	holdings map[string]decimal.Decimal
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		holdings: make(map[string]decimal.Decimal),
	}
}

// Apply adds delta to symbol, creating the entry at zero if absent.
func (l *Ledger) Apply(symbol string, delta decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holdings[symbol] = l.holdings[symbol].Add(delta)
}

// Quantity returns the held quantity for symbol (zero if absent).
func (l *Ledger) Quantity(symbol string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holdings[symbol]
}

// Has reports whether symbol has ever been traded.
func (l *Ledger) Has(symbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.holdings[symbol]
	return ok
}

// Snapshot returns all entries ordered by symbol.
func (l *Ledger) Snapshot() []types.PortfolioEntry {
	l.mu.Lock()
	out := make([]types.PortfolioEntry, 0, len(l.holdings))
	for sym, qty := range l.holdings {
		out = append(out, types.PortfolioEntry{Symbol: sym, Quantity: qty})
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
