package interfaces

import (
	"context"

	"scenario-advisor/internal/types"
)

// NewsSource returns ranked news items for a keyword string.
type NewsSource interface {
	Name() string
	Fetch(ctx context.Context, keywords string) ([]types.NewsItem, error)
}
