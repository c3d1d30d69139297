package interfaces

import (
	"context"

	"scenario-advisor/internal/types"
)

// FundamentalsSource provides company records for lookup and ranking.
type FundamentalsSource interface {
	// Lookup returns records whose name or symbol contains query
	Lookup(ctx context.Context, query string) ([]types.CompanyRecord, error)

	// All returns the full dataset used for ranking
	All(ctx context.Context) ([]types.CompanyRecord, error)
}
