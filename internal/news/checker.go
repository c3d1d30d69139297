package news

import (
	"context"
	"time"

	"scenario-advisor/internal/apperr"
	"scenario-advisor/internal/clock"
	"scenario-advisor/internal/interfaces"
	"scenario-advisor/internal/logger"
	"scenario-advisor/internal/metrics"
	"scenario-advisor/internal/types"
)

// Trigger labels why a check ran.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

type triggerKey struct{}

// WithTrigger tags ctx so CheckNews can label its metrics.
func WithTrigger(ctx context.Context, t Trigger) context.Context {
	return context.WithValue(ctx, triggerKey{}, t)
}

func triggerFrom(ctx context.Context) Trigger {
	if t, ok := ctx.Value(triggerKey{}).(Trigger); ok {
		return t
	}
	return TriggerManual
}

// Checker fetches headlines for a scenario and records the outcome in the news log.
type Checker struct {
	source   interfaces.NewsSource
	log      interfaces.NewsRecorder
	clock    clock.Clock
	timeout  time.Duration
	maxItems int
}

func NewChecker(source interfaces.NewsSource, log interfaces.NewsRecorder, clk clock.Clock, timeout time.Duration, maxItems int) *Checker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxItems <= 0 {
		maxItems = 3
	}
	return &Checker{
		source:   source,
		log:      log,
		clock:    clk,
		timeout:  timeout,
		maxItems: maxItems,
	}
}

// CheckNews appends exactly one entry for sc, either the fetched items or the
// failure text. A failure is also returned as an External error.
func (c *Checker) CheckNews(ctx context.Context, sc types.Scenario) (types.NewsLogEntry, error) {
	op := logger.StartOperation(ctx, "news.check", "scenario_id", sc.ID, "source", c.source.Name())
	ctx = op.GetContext()

	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	items, err := c.source.Fetch(fetchCtx, sc.Keywords)
	cancel()

	entry := types.NewsLogEntry{
		ScenarioID: sc.ID,
		FetchedAt:  c.clock.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
	} else {
		if len(items) > c.maxItems {
			items = items[:c.maxItems]
		}
		entry.Items = items
	}

	c.log.Append(ctx, entry)
	logger.NewsCheck(ctx, sc.ID, len(entry.Items), err, "source", c.source.Name())
	metrics.NewsChecks.WithLabelValues(string(triggerFrom(ctx)), metrics.Outcome(err)).Inc()

	if err != nil {
		op.EndWithError(err)
		return entry, apperr.ExternalErr("check_news", "news fetch failed for scenario "+sc.ID, err)
	}
	op.End("items", len(entry.Items))
	return entry, nil
}
