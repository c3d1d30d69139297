package brokerageobs

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"scenario-advisor/internal/interfaces"
	"scenario-advisor/internal/logger"
	"scenario-advisor/internal/trace"
	"scenario-advisor/internal/types"
)

// observableBrokerage wraps a Brokerage with observability (logging & tracing)
type observableBrokerage struct {
	brokerage interfaces.Brokerage
}

// Compile-time interface check
var _ interfaces.Brokerage = (*observableBrokerage)(nil)

// Wrap wraps a brokerage with observability middleware
func Wrap(b interfaces.Brokerage) interfaces.Brokerage {
	return &observableBrokerage{brokerage: b}
}

// SubmitOrder places an order with observability
func (ob *observableBrokerage) SubmitOrder(ctx context.Context, symbol, quantity string) (types.TradeResult, error) {
	ctx, span := trace.StartSpan(ctx, "brokerage.SubmitOrder",
		attribute.String("symbol", symbol),
		attribute.String("quantity", quantity),
	)
	defer span.End()

	logger.DebugSkip(ctx, 1, "Submitting order", "symbol", symbol, "quantity", quantity)

	res, err := ob.brokerage.SubmitOrder(ctx, symbol, quantity)
	span.SetAttributes(
		attribute.Bool("accepted", res.Accepted),
		attribute.Bool("degraded", res.Degraded),
	)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Order failed", err, "symbol", symbol, "quantity", quantity)
		return res, err
	}

	logger.DebugSkip(ctx, 1, "Order accepted", "symbol", symbol, "order_id", res.OrderID)
	return res, nil
}
