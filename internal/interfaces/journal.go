package interfaces

import (
	"context"

	"scenario-advisor/internal/types"
)

// NewsRecorder is the append side of the news log.
type NewsRecorder interface {
	Append(ctx context.Context, entry types.NewsLogEntry)
}

// TradeRecorder mirrors order outcomes to durable storage.
type TradeRecorder interface {
	AppendTrade(symbol, quantity string, res types.TradeResult) error
}
