package advisor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenario-advisor/internal/apperr"
	"scenario-advisor/internal/brokerage"
	"scenario-advisor/internal/clock"
	"scenario-advisor/internal/fundamentals"
	"scenario-advisor/internal/portfolio"
	"scenario-advisor/internal/query"
	"scenario-advisor/internal/store"
	"scenario-advisor/internal/types"
)

type stubNews struct {
	items []types.NewsItem
	err   error
	calls int32
}

func (s *stubNews) Name() string { return "stub" }

func (s *stubNews) Fetch(_ context.Context, _ string) ([]types.NewsItem, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.items, s.err
}

type stubBrokerage struct {
	ledger *portfolio.Ledger
}

func (b *stubBrokerage) SubmitOrder(_ context.Context, symbol, quantity string) (types.TradeResult, error) {
	q, err := decimal.NewFromString(quantity)
	if err != nil {
		return types.TradeResult{}, apperr.Validationf("submit_order", "bad quantity")
	}
	b.ledger.Apply(symbol, q)
	return types.TradeResult{Accepted: true, FilledSymbol: symbol, FilledQuantity: q}, nil
}

type failingFundamentals struct{}

func (failingFundamentals) Lookup(context.Context, string) ([]types.CompanyRecord, error) {
	return nil, errors.New("dart down")
}

func (failingFundamentals) All(context.Context) ([]types.CompanyRecord, error) {
	return nil, errors.New("dart down")
}

var threeItems = []types.NewsItem{
	{Title: "one", Link: "https://n.example/1"},
	{Title: "two", Link: "https://n.example/2"},
	{Title: "three", Link: "https://n.example/3"},
}

func newApp(t *testing.T, src *stubNews, opts Options) (*App, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 5, 4, 7, 30, 0, 0, time.UTC))
	opts.Clock = clk
	opts.NewsSource = src
	if opts.Fundamentals == nil {
		opts.Fundamentals = fundamentals.NewSampleSource()
	}
	if opts.Ledger == nil {
		opts.Ledger = portfolio.NewLedger()
	}
	if opts.Brokerage == nil {
		opts.Brokerage = &stubBrokerage{ledger: opts.Ledger}
	}
	app, err := New(store.Default(), opts)
	require.NoError(t, err)
	return app, clk
}

func TestCheckNewsNowEndToEnd(t *testing.T) {
	app, _ := newApp(t, &stubNews{items: threeItems}, Options{})

	sc, err := app.RegisterScenario(context.Background(), "rates fall", "1000000", "005930", "X")
	require.NoError(t, err)
	require.Len(t, app.ListScenarios(), 1)

	_, err = app.CheckNewsNow(context.Background(), sc.ID)
	require.NoError(t, err)

	log := app.ListNewsLog("")
	require.Len(t, log, 1)
	assert.Equal(t, sc.ID, log[0].ScenarioID)
	assert.Equal(t, threeItems, log[0].Items)
	assert.Empty(t, log[0].Error)
}

func TestCheckNewsNowUnknownScenario(t *testing.T) {
	src := &stubNews{items: threeItems}
	app, _ := newApp(t, src, Options{})

	_, err := app.CheckNewsNow(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.State))
	assert.Equal(t, 1, apperr.ExitCode(err))
	assert.Empty(t, app.ListNewsLog(""))
	assert.Equal(t, int32(0), atomic.LoadInt32(&src.calls))
}

func TestCheckNewsNowFailureIsExternal(t *testing.T) {
	app, _ := newApp(t, &stubNews{err: errors.New("timeout")}, Options{})
	sc, err := app.RegisterScenario(context.Background(), "d", "10", "005930", "k")
	require.NoError(t, err)

	_, err = app.CheckNewsNow(context.Background(), sc.ID)
	assert.Equal(t, 2, apperr.ExitCode(err))
	require.Len(t, app.ListNewsLog(sc.ID), 1)
	assert.Contains(t, app.ListNewsLog(sc.ID)[0].Error, "timeout")
}

func TestScheduledCheckRunsAtDailySlot(t *testing.T) {
	src := &stubNews{items: threeItems}
	app, clk := newApp(t, src, Options{})

	sc, err := app.RegisterScenario(context.Background(), "d", "10", "005930", "k")
	require.NoError(t, err)

	assert.Equal(t, 0, app.RunPending(context.Background()))
	assert.Empty(t, app.ListNewsLog(""))

	clk.Set(time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, app.RunPending(context.Background()))
	assert.Equal(t, 0, app.RunPending(context.Background()))

	log := app.ListNewsLog(sc.ID)
	require.Len(t, log, 1)
	assert.Len(t, log[0].Items, 3)
}

func TestInterpretConfirmCancel(t *testing.T) {
	app, _ := newApp(t, &stubNews{}, Options{})

	intent := app.Interpret(context.Background(), "배당률 상위 5위")
	assert.Equal(t, query.Intent{Kind: query.DividendRank, N: 5}, intent)

	res, err := app.Confirm(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Performed)
	assert.Len(t, res.Lines, 5)
	assert.Equal(t, "기업은행(024110): 7.18%", res.Lines[0])

	// consumed
	_, ok := app.Pending()
	assert.False(t, ok)

	app.Interpret(context.Background(), "배당률 상위 5위")
	assert.True(t, app.Cancel())
	res, err = app.Confirm(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Performed)
	assert.Equal(t, "nothing to do: no pending request", res.String())
}

func TestConfirmUnrecognizedAndBuyback(t *testing.T) {
	app, _ := newApp(t, &stubNews{}, Options{})

	app.Interpret(context.Background(), "tell me a joke")
	res, err := app.Confirm(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Performed)
	assert.Equal(t, "nothing to perform", res.Message)

	app.Interpret(context.Background(), "자사주 비중 높고 소각 안 한 기업")
	res, err = app.Confirm(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Placeholder)
}

func TestConfirmKeepsPendingOnFundamentalsFailure(t *testing.T) {
	app, _ := newApp(t, &stubNews{}, Options{Fundamentals: failingFundamentals{}})

	app.Interpret(context.Background(), "dividend yield top 3")
	_, err := app.Confirm(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.External))

	pending, ok := app.Pending()
	require.True(t, ok)
	assert.Equal(t, 3, pending.N)
}

func TestSubmitTradeUpdatesPortfolio(t *testing.T) {
	app, _ := newApp(t, &stubNews{}, Options{})

	_, err := app.SubmitTrade(context.Background(), "005930", "5")
	require.NoError(t, err)
	_, err = app.SubmitTrade(context.Background(), "005930", "-2")
	require.NoError(t, err)

	pf := app.Portfolio()
	require.Len(t, pf, 1)
	assert.True(t, decimal.NewFromInt(3).Equal(pf[0].Quantity))
}

func TestSubmitTradeTokenFailureEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	ledger := portfolio.NewLedger()
	cfg := store.Default()
	cfg.Brokerage.BaseURL = srv.URL
	client := brokerage.NewClient(brokerage.ConfigFrom(cfg, store.Secrets{
		BrokerAppKey:    "k",
		BrokerAppSecret: "s",
		BrokerAccount:   "1",
	}), ledger)

	app, _ := newApp(t, &stubNews{}, Options{Brokerage: client, Ledger: ledger})

	res, err := app.SubmitTrade(context.Background(), "005930", "5")
	require.Error(t, err)
	assert.False(t, res.Accepted)
	assert.Contains(t, res.Message, "token")
	assert.Equal(t, 2, apperr.ExitCode(err))
	assert.Empty(t, app.Portfolio())
}

func TestStartRunsSchedulerLoop(t *testing.T) {
	src := &stubNews{items: threeItems}
	cfg := store.Default()
	cfg.Schedule.PollInterval = 5 * time.Millisecond
	clk := clock.NewFake(time.Date(2026, 5, 4, 7, 59, 0, 0, time.UTC))
	ledger := portfolio.NewLedger()
	app, err := New(cfg, Options{
		Clock:        clk,
		NewsSource:   src,
		Fundamentals: fundamentals.NewSampleSource(),
		Brokerage:    &stubBrokerage{ledger: ledger},
		Ledger:       ledger,
	})
	require.NoError(t, err)

	_, err = app.RegisterScenario(context.Background(), "d", "10", "005930", "k")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.Start(ctx)
	app.Start(ctx)

	clk.Set(time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC))
	assert.Eventually(t, func() bool { return len(app.ListNewsLog("")) == 1 }, time.Second, 5*time.Millisecond)
}

func TestFormatting(t *testing.T) {
	sc := types.Scenario{ID: "id-1", Description: "rates fall", Amount: decimal.NewFromInt(1000), Symbol: "005930", Keywords: "rate cut"}
	assert.Contains(t, DescribeScenario(sc), "Scenario added:\nrates fall\nInvest: 1000")

	assert.Contains(t, FormatNewsEntry(types.NewsLogEntry{ScenarioID: "id-1"}), "No news found")
	assert.Contains(t, FormatNewsEntry(types.NewsLogEntry{Error: "boom"}), "Request error: boom")
	assert.Equal(t, "Order accepted: ok (order 42) [signed with local hash]",
		FormatTrade(types.TradeResult{Accepted: true, Message: "ok", OrderID: "42", Degraded: true}))
}
