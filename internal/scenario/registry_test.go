package scenario

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenario-advisor/internal/apperr"
	"scenario-advisor/internal/clock"
	"scenario-advisor/internal/scheduler"
	"scenario-advisor/internal/types"
)

var eight = scheduler.TimeOfDay{Hour: 8}

type checks struct {
	mu  sync.Mutex
	ids []string
}

func (c *checks) record(_ context.Context, sc types.Scenario) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, sc.ID)
	return nil
}

func (c *checks) seen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.ids...)
}

func setup(now time.Time) (*Registry, *scheduler.Scheduler, *clock.Fake, *checks) {
	clk := clock.NewFake(now)
	sched := scheduler.New(clk, time.Second, time.Second)
	c := &checks{}
	return NewRegistry(sched, eight, clk, c.record), sched, clk, c
}

func TestRegisterAssignsUniqueIDsAndOneJobEach(t *testing.T) {
	now := time.Date(2026, 5, 4, 7, 0, 0, 0, time.UTC)
	reg, sched, _, _ := setup(now)

	a, err := reg.Register(context.Background(), "rates fall", "1000000", "005930", "interest rate cut")
	require.NoError(t, err)
	b, err := reg.Register(context.Background(), "chips boom", "2,500,000", "000660", "HBM demand")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, decimal.NewFromInt(2500000).Equal(b.Amount))
	assert.Equal(t, now, a.CreatedAt)

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)

	jobs := sched.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, a.ID, jobs[0].ScenarioID)
	assert.Equal(t, b.ID, jobs[1].ScenarioID)
	assert.Equal(t, time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC), jobs[0].NextRunAt)

	got, ok := reg.Get(b.ID)
	require.True(t, ok)
	assert.Equal(t, "HBM demand", got.Keywords)
}

func TestRegisterValidation(t *testing.T) {
	reg, sched, _, _ := setup(time.Now())

	cases := []struct {
		name                                  string
		description, amount, symbol, keywords string
	}{
		{"zero amount", "d", "0", "005930", "k"},
		{"negative amount", "d", "-5", "005930", "k"},
		{"non-numeric amount", "d", "lots", "005930", "k"},
		{"blank symbol", "d", "100", "  ", "k"},
		{"blank keywords", "d", "100", "005930", ""},
		{"blank description", " ", "100", "005930", "k"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reg.Register(context.Background(), tc.description, tc.amount, tc.symbol, tc.keywords)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.Validation))
		})
	}

	assert.Empty(t, reg.List())
	assert.Empty(t, sched.Jobs())
}

func TestJobFiresCheckForItsScenario(t *testing.T) {
	reg, sched, clk, c := setup(time.Date(2026, 5, 4, 7, 0, 0, 0, time.UTC))

	sc, err := reg.Register(context.Background(), "rates fall", "100", "005930", "rate cut")
	require.NoError(t, err)

	assert.Equal(t, 0, sched.RunPending(context.Background()))
	assert.Empty(t, c.seen())

	clk.Set(time.Date(2026, 5, 4, 8, 0, 1, 0, time.UTC))
	assert.Equal(t, 1, sched.RunPending(context.Background()))
	assert.Equal(t, []string{sc.ID}, c.seen())
}

func TestRegisteredAfterDailySlotWaitsUntilTomorrow(t *testing.T) {
	reg, sched, clk, c := setup(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))

	_, err := reg.Register(context.Background(), "late", "100", "005930", "k")
	require.NoError(t, err)

	clk.Set(time.Date(2026, 5, 4, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, 0, sched.RunPending(context.Background()))

	clk.Set(time.Date(2026, 5, 5, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, sched.RunPending(context.Background()))
	assert.Len(t, c.seen(), 1)
}

func TestJobForUnknownScenarioIsNoop(t *testing.T) {
	reg, _, _, c := setup(time.Now())
	require.NoError(t, reg.jobFor("missing")(context.Background()))
	assert.Empty(t, c.seen())
}

func TestConcurrentRegister(t *testing.T) {
	reg, sched, _, _ := setup(time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Register(context.Background(), "d", "10", "005930", "k")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list := reg.List()
	assert.Len(t, list, 20)
	assert.Len(t, sched.Jobs(), 20)

	seen := make(map[string]bool)
	for _, sc := range list {
		assert.False(t, seen[sc.ID])
		seen[sc.ID] = true
	}
}
