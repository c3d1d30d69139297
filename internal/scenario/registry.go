package scenario

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"scenario-advisor/internal/apperr"
	"scenario-advisor/internal/clock"
	"scenario-advisor/internal/logger"
	"scenario-advisor/internal/metrics"
	"scenario-advisor/internal/scheduler"
	"scenario-advisor/internal/types"
)

// CheckFunc is run by the daily job for a scenario.
type CheckFunc func(ctx context.Context, sc types.Scenario) error

// Registry owns the scenarios and their daily news-check jobs.
type Registry struct {
	mu        sync.Mutex
	scenarios []types.Scenario
	byID      map[string]int

	sched *scheduler.Scheduler
	at    scheduler.TimeOfDay
	clock clock.Clock
	check CheckFunc
}

func NewRegistry(sched *scheduler.Scheduler, at scheduler.TimeOfDay, clk clock.Clock, check CheckFunc) *Registry {
	return &Registry{
		byID:  make(map[string]int),
		sched: sched,
		at:    at,
		clock: clk,
		check: check,
	}
}

// Register validates the input, stores the scenario and schedules its daily
// check. Both happen under one lock; on a validation error nothing is stored.
func (r *Registry) Register(ctx context.Context, description, amount, symbol, keywords string) (types.Scenario, error) {
	description = strings.TrimSpace(description)
	symbol = strings.TrimSpace(symbol)
	keywords = strings.TrimSpace(keywords)

	if description == "" {
		return types.Scenario{}, apperr.Validationf("register_scenario", "description must not be empty")
	}
	amt, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(amount), ",", ""))
	if err != nil {
		return types.Scenario{}, apperr.Validationf("register_scenario", "amount %q is not a number", amount)
	}
	if !amt.IsPositive() {
		return types.Scenario{}, apperr.Validationf("register_scenario", "amount must be greater than zero, got %s", amt)
	}
	if symbol == "" {
		return types.Scenario{}, apperr.Validationf("register_scenario", "symbol must not be empty")
	}
	if keywords == "" {
		return types.Scenario{}, apperr.Validationf("register_scenario", "keywords must not be empty")
	}

	sc := types.Scenario{
		ID:          uuid.NewString(),
		Description: description,
		Amount:      amt,
		Symbol:      symbol,
		Keywords:    keywords,
		CreatedAt:   r.clock.Now(),
	}

	r.mu.Lock()
	r.byID[sc.ID] = len(r.scenarios)
	r.scenarios = append(r.scenarios, sc)
	job := r.sched.AddDaily(sc.ID, r.at, r.jobFor(sc.ID))
	count := len(r.scenarios)
	r.mu.Unlock()

	metrics.Scenarios.Set(float64(count))
	logger.Info(ctx, "Scenario registered",
		"scenario_id", sc.ID,
		"symbol", sc.Symbol,
		"amount", sc.Amount.String(),
		"keywords", sc.Keywords,
		"next_check", job.NextRunAt.Format("2006-01-02 15:04"))
	return sc, nil
}

// jobFor resolves the scenario when the job fires; an unknown id is a no-op.
func (r *Registry) jobFor(id string) scheduler.Callback {
	return func(ctx context.Context) error {
		sc, ok := r.Get(id)
		if !ok {
			logger.Debug(ctx, "Scheduled scenario no longer registered", "scenario_id", id)
			return nil
		}
		return r.check(ctx, sc)
	}
}

// List returns scenarios in registration order.
func (r *Registry) List() []types.Scenario {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Scenario(nil), r.scenarios...)
}

func (r *Registry) Get(id string) (types.Scenario, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return types.Scenario{}, false
	}
	return r.scenarios[i], true
}
