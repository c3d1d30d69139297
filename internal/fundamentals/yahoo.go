package fundamentals

import (
	"context"
	"fmt"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"
	"github.com/shopspring/decimal"

	"scenario-advisor/internal/apperr"
	"scenario-advisor/internal/logger"
	"scenario-advisor/internal/types"
)

// PriceSource quotes the last price for a symbol.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// equityLister is the finance-go call, swapped in tests.
type equityLister func(symbols []string) ([]*finance.Equity, error)

func listEquities(symbols []string) ([]*finance.Equity, error) {
	iter := equity.List(symbols)
	var out []*finance.Equity
	for iter.Next() {
		out = append(out, iter.Equity())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// YahooSource reads prices and trailing dividend rates for a fixed symbol universe.
// Yahoo has no treasury-share data, so those fields stay nil.
type YahooSource struct {
	universe []string
	list     equityLister
}

func NewYahooSource(universe []string) *YahooSource {
	return &YahooSource{
		universe: append([]string(nil), universe...),
		list:     listEquities,
	}
}

func (y *YahooSource) fetch(ctx context.Context, symbols []string) ([]types.CompanyRecord, error) {
	type result struct {
		eqs []*finance.Equity
		err error
	}
	// finance-go has no context support; abandon the call when ctx ends
	done := make(chan result, 1)
	go func() {
		eqs, err := y.list(symbols)
		done <- result{eqs, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, apperr.ExternalErr("yahoo", "quote request abandoned", ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return nil, apperr.ExternalErr("yahoo", "quote request failed", res.err)
	}

	out := make([]types.CompanyRecord, 0, len(res.eqs))
	for _, e := range res.eqs {
		if e == nil {
			continue
		}
		name := e.ShortName
		if name == "" {
			name = e.LongName
		}
		out = append(out, types.CompanyRecord{
			Name:             name,
			Symbol:           e.Symbol,
			Code:             e.FullExchangeName,
			DividendPerShare: decimal.NewFromFloat(e.TrailingAnnualDividendRate),
			Price:            decimal.NewFromFloat(e.RegularMarketPrice),
		})
	}
	logger.Debug(ctx, "Yahoo quotes fetched", "requested", len(symbols), "received", len(out))
	return out, nil
}

func (y *YahooSource) All(ctx context.Context) ([]types.CompanyRecord, error) {
	return y.fetch(ctx, y.universe)
}

func (y *YahooSource) Lookup(ctx context.Context, query string) ([]types.CompanyRecord, error) {
	all, err := y.All(ctx)
	if err != nil {
		return nil, err
	}
	return lookup(all, query)
}

func (y *YahooSource) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	recs, err := y.fetch(ctx, []string{symbol})
	if err != nil {
		return decimal.Zero, err
	}
	for _, r := range recs {
		if r.Symbol == symbol {
			return r.Price, nil
		}
	}
	return decimal.Zero, apperr.ExternalErr("yahoo", fmt.Sprintf("no quote for %s", symbol), nil)
}
