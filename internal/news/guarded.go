package news

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"scenario-advisor/internal/interfaces"
	"scenario-advisor/internal/logger"
	"scenario-advisor/internal/types"
)

// Guarded puts a circuit breaker in front of a NewsSource. While the breaker
// is open Fetch fails fast with gobreaker.ErrOpenState.
type Guarded struct {
	inner interfaces.NewsSource
	cb    *gobreaker.CircuitBreaker
}

func NewGuarded(inner interfaces.NewsSource, consecutiveFailures uint32, openTimeout time.Duration) *Guarded {
	if consecutiveFailures == 0 {
		consecutiveFailures = 5
	}
	st := gobreaker.Settings{
		Name:        "news-" + inner.Name(),
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "News source breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &Guarded{inner: inner, cb: gobreaker.NewCircuitBreaker(st)}
}

func (g *Guarded) Name() string { return g.inner.Name() }

// State exposes the breaker state for health reporting.
func (g *Guarded) State() gobreaker.State { return g.cb.State() }

func (g *Guarded) Fetch(ctx context.Context, keywords string) ([]types.NewsItem, error) {
	out, err := g.cb.Execute(func() (interface{}, error) {
		return g.inner.Fetch(ctx, keywords)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.Name(), err)
	}
	items, _ := out.([]types.NewsItem)
	return items, nil
}
