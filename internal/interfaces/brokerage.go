package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"scenario-advisor/internal/types"
)

// Brokerage submits orders to the execution endpoint.
type Brokerage interface {
	// SubmitOrder validates quantity, then signs and posts a buy order.
	// The returned TradeResult is meaningful even when err is non-nil.
	SubmitOrder(ctx context.Context, symbol, quantity string) (types.TradeResult, error)
}

// Ledger records holdings changes from confirmed trades.
type Ledger interface {
	Apply(symbol string, delta decimal.Decimal)
}
