package fundamentals

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"scenario-advisor/internal/apperr"
	"scenario-advisor/internal/logger"
	"scenario-advisor/internal/types"
)

const (
	dartStatusOK     = "000"
	dartStatusNoData = "013"

	cashDividendLabel = "주당 현금배당금(원)"
	commonStockLabel  = "보통주"
	totalRowLabel     = "총계"
)

// DARTCompany maps an OpenDART corporation code to a tradable symbol.
type DARTCompany struct {
	CorpCode string
	Symbol   string
	Name     string
}

// DARTSource reads dividend and treasury-stock disclosures from OpenDART and
// prices them through a PriceSource.
type DARTSource struct {
	client     *resty.Client
	apiKey     string
	year       string
	reportCode string
	companies  []DARTCompany
	prices     PriceSource
}

// businessYear is the latest year with filed annual reports as of now.
// Reports for the current year are not filed until spring of the next.
func businessYear(now time.Time) string {
	return strconv.Itoa(now.Year() - 1)
}

// NewDARTSource reads disclosures filed for year (YYYY).
func NewDARTSource(baseURL, apiKey, year, reportCode string, companies []DARTCompany, prices PriceSource, timeout time.Duration) *DARTSource {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	return &DARTSource{
		client:     client,
		apiKey:     apiKey,
		year:       year,
		reportCode: reportCode,
		companies:  append([]DARTCompany(nil), companies...),
		prices:     prices,
	}
}

type dartEnvelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	List    []T    `json:"list"`
}

type dividendRow struct {
	Se        string `json:"se"`
	StockKind string `json:"stock_knd"`
	Current   string `json:"thstrm"`
}

type treasuryRow struct {
	Method    string `json:"acqs_mth1"`
	StockKind string `json:"stock_knd"`
	Cancelled string `json:"change_qy_incnr"`
	EndQty    string `json:"trmend_qy"`
}

func (d *DARTSource) params(corpCode string) map[string]string {
	return map[string]string{
		"crtfc_key":  d.apiKey,
		"corp_code":  corpCode,
		"bsns_year":  d.year,
		"reprt_code": d.reportCode,
	}
}

// getList fetches one disclosure list. A "no data" status yields an empty list.
func getList[T any](ctx context.Context, d *DARTSource, path, corpCode string) ([]T, error) {
	var env dartEnvelope[T]
	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParams(d.params(corpCode)).
		SetResult(&env).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s for %s: %w", path, corpCode, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
	}

	switch env.Status {
	case dartStatusOK:
		return env.List, nil
	case dartStatusNoData:
		return nil, nil
	default:
		return nil, fmt.Errorf("dart status %s: %s", env.Status, env.Message)
	}
}

func (d *DARTSource) company(ctx context.Context, c DARTCompany) (types.CompanyRecord, error) {
	rec := types.CompanyRecord{Name: c.Name, Symbol: c.Symbol, Code: c.CorpCode}

	dividends, err := getList[dividendRow](ctx, d, "/api/alotMatter.json", c.CorpCode)
	if err != nil {
		return rec, err
	}
	rec.DividendPerShare = cashDividend(dividends)

	treasury, err := getList[treasuryRow](ctx, d, "/api/tesstkAcqsDspsSttus.json", c.CorpCode)
	if err != nil {
		return rec, err
	}
	if len(treasury) > 0 {
		held, cancelled := treasuryTotals(treasury)
		rec.TreasuryShares = &held
		rec.CancelledShares = &cancelled
	}

	if d.prices != nil {
		price, err := d.prices.Price(ctx, c.Symbol)
		if err != nil {
			// an unpriced record ranks with yield 0
			logger.Warn(ctx, "Price unavailable for DART company", "symbol", c.Symbol, "error", err)
		} else {
			rec.Price = price
		}
	}
	return rec, nil
}

func (d *DARTSource) All(ctx context.Context) ([]types.CompanyRecord, error) {
	out := make([]types.CompanyRecord, 0, len(d.companies))
	for _, c := range d.companies {
		rec, err := d.company(ctx, c)
		if err != nil {
			return nil, apperr.ExternalErr("dart", "disclosure request failed for "+c.Name, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (d *DARTSource) Lookup(ctx context.Context, query string) ([]types.CompanyRecord, error) {
	all, err := d.All(ctx)
	if err != nil {
		return nil, err
	}
	return lookup(all, query)
}

// cashDividend picks the common-stock cash dividend per share for the current term.
func cashDividend(rows []dividendRow) decimal.Decimal {
	for _, r := range rows {
		if r.Se != cashDividendLabel {
			continue
		}
		if r.StockKind != "" && r.StockKind != commonStockLabel {
			continue
		}
		v, err := decimal.NewFromString(cleanNumber(r.Current))
		if err != nil {
			return decimal.Zero
		}
		return v
	}
	return decimal.Zero
}

// treasuryTotals sums the "total" rows, or every row when the filing has none.
func treasuryTotals(rows []treasuryRow) (held, cancelled int64) {
	totals := make([]treasuryRow, 0, len(rows))
	for _, r := range rows {
		if strings.Contains(r.Method, totalRowLabel) {
			totals = append(totals, r)
		}
	}
	if len(totals) == 0 {
		totals = rows
	}
	for _, r := range totals {
		held += parseShares(r.EndQty)
		cancelled += parseShares(r.Cancelled)
	}
	return held, cancelled
}

func cleanNumber(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

func parseShares(s string) int64 {
	n, err := strconv.ParseInt(cleanNumber(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
