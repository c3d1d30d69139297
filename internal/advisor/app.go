// Package advisor is the command surface: every user-facing operation of the
// scenario advisor, over state objects built once at startup.
package advisor

import (
	"context"
	"fmt"
	"sync/atomic"

	"scenario-advisor/internal/apperr"
	"scenario-advisor/internal/clock"
	"scenario-advisor/internal/interfaces"
	"scenario-advisor/internal/journal"
	"scenario-advisor/internal/logger"
	"scenario-advisor/internal/news"
	"scenario-advisor/internal/portfolio"
	"scenario-advisor/internal/query"
	"scenario-advisor/internal/ranking"
	"scenario-advisor/internal/scenario"
	"scenario-advisor/internal/scheduler"
	"scenario-advisor/internal/store"
	"scenario-advisor/internal/types"
)

// Options carries the collaborators. Nil Clock, Ledger and NewsLog get fresh defaults.
type Options struct {
	Clock        clock.Clock
	NewsSource   interfaces.NewsSource
	Fundamentals interfaces.FundamentalsSource
	Brokerage    interfaces.Brokerage
	Ledger       *portfolio.Ledger
	NewsLog      *journal.NewsLog
}

type App struct {
	clock        clock.Clock
	sched        *scheduler.Scheduler
	registry     *scenario.Registry
	checker      *news.Checker
	newsLog      *journal.NewsLog
	session      *query.Session
	fundamentals interfaces.FundamentalsSource
	brokerage    interfaces.Brokerage
	ledger       *portfolio.Ledger

	started atomic.Bool
}

func New(cfg *store.Config, opts Options) (*App, error) {
	if opts.NewsSource == nil || opts.Fundamentals == nil || opts.Brokerage == nil {
		return nil, fmt.Errorf("news source, fundamentals and brokerage are required")
	}
	at, err := scheduler.ParseTimeOfDay(cfg.Schedule.CheckTime)
	if err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Ledger == nil {
		opts.Ledger = portfolio.NewLedger()
	}
	if opts.NewsLog == nil {
		opts.NewsLog = journal.NewNewsLog(nil)
	}

	a := &App{
		clock:        opts.Clock,
		sched:        scheduler.New(opts.Clock, cfg.Schedule.PollInterval, cfg.Schedule.JobTimeout),
		newsLog:      opts.NewsLog,
		session:      query.NewSession(),
		fundamentals: opts.Fundamentals,
		brokerage:    opts.Brokerage,
		ledger:       opts.Ledger,
	}
	a.checker = news.NewChecker(opts.NewsSource, opts.NewsLog, opts.Clock, cfg.News.Timeout, cfg.News.MaxItems)
	a.registry = scenario.NewRegistry(a.sched, at, opts.Clock, a.scheduledCheck)
	return a, nil
}

func (a *App) scheduledCheck(ctx context.Context, sc types.Scenario) error {
	_, err := a.checker.CheckNews(news.WithTrigger(ctx, news.TriggerScheduled), sc)
	return err
}

// Start runs the scheduler loop until ctx is cancelled. Later calls are no-ops.
func (a *App) Start(ctx context.Context) {
	if !a.started.CompareAndSwap(false, true) {
		return
	}
	go a.sched.Run(ctx)
}

// RunPending runs due scheduled checks now and reports how many ran.
func (a *App) RunPending(ctx context.Context) int {
	return a.sched.RunPending(ctx)
}

// Jobs lists the scheduled daily checks.
func (a *App) Jobs() []scheduler.Job {
	return a.sched.Jobs()
}

func (a *App) RegisterScenario(ctx context.Context, description, amount, symbol, keywords string) (types.Scenario, error) {
	return a.registry.Register(ctx, description, amount, symbol, keywords)
}

// CheckNewsNow runs the news check for one scenario immediately.
func (a *App) CheckNewsNow(ctx context.Context, scenarioID string) (types.NewsLogEntry, error) {
	sc, ok := a.registry.Get(scenarioID)
	if !ok {
		return types.NewsLogEntry{}, apperr.Statef("check_news_now", "unknown scenario %q", scenarioID)
	}
	return a.checker.CheckNews(news.WithTrigger(ctx, news.TriggerManual), sc)
}

// Interpret parses text and makes it the pending request.
func (a *App) Interpret(ctx context.Context, text string) query.Intent {
	intent := a.session.Interpret(text)
	logger.Info(ctx, "Query interpreted", "kind", intent.Kind.String(), "n", intent.N)
	return intent
}

func (a *App) Pending() (query.Intent, bool) {
	return a.session.Pending()
}

// Cancel drops the pending request and reports whether there was one.
func (a *App) Cancel() bool {
	return a.session.Cancel()
}

// Confirm performs the pending request. With nothing pending it returns an
// unperformed result and no error. The request stays pending if the
// fundamentals source fails, so it can be confirmed again.
func (a *App) Confirm(ctx context.Context) (ranking.Result, error) {
	intent, gen, ok := a.session.Claim()
	if !ok {
		return ranking.Result{Message: "nothing to do: no pending request"}, nil
	}

	var records []types.CompanyRecord
	if intent.Kind == query.DividendRank {
		var err error
		records, err = a.fundamentals.All(ctx)
		if err != nil {
			logger.ErrorWithErr(ctx, "Fundamentals lookup failed", err, "kind", intent.Kind.String())
			if apperr.KindOf(err) == 0 {
				err = apperr.ExternalErr("confirm", "fundamentals lookup failed", err)
			}
			return ranking.Result{Message: err.Error()}, err
		}
	}

	res := ranking.Perform(intent, records)
	a.session.Release(gen)
	logger.Info(ctx, "Request performed", "kind", intent.Kind.String(), "performed", res.Performed, "rows", len(res.Lines))
	return res, nil
}

// Lookup searches the fundamentals source by name or symbol fragment.
func (a *App) Lookup(ctx context.Context, q string) ([]types.CompanyRecord, error) {
	return a.fundamentals.Lookup(ctx, q)
}

func (a *App) SubmitTrade(ctx context.Context, symbol, quantity string) (types.TradeResult, error) {
	return a.brokerage.SubmitOrder(ctx, symbol, quantity)
}

func (a *App) ListScenarios() []types.Scenario {
	return a.registry.List()
}

// ListNewsLog returns the log, filtered to one scenario when scenarioID is set.
func (a *App) ListNewsLog(scenarioID string) []types.NewsLogEntry {
	if scenarioID != "" {
		return a.newsLog.ForScenario(scenarioID)
	}
	return a.newsLog.Entries()
}

func (a *App) Portfolio() []types.PortfolioEntry {
	return a.ledger.Snapshot()
}
