package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Scenario is a registered investment thesis. Immutable once created.
type Scenario struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Symbol      string          `json:"symbol"`
	Keywords    string          `json:"keywords"`
	CreatedAt   time.Time       `json:"created_at"`
}

type NewsItem struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// NewsLogEntry records one news check. Error is set instead of Items when the fetch failed.
type NewsLogEntry struct {
	ScenarioID string     `json:"scenario_id"`
	FetchedAt  time.Time  `json:"fetched_at"`
	Items      []NewsItem `json:"items"`
	Error      string     `json:"error,omitempty"`
}

// CompanyRecord is one row of fundamentals data.
type CompanyRecord struct {
	Name             string          `json:"name"`
	Symbol           string          `json:"symbol"`
	Code             string          `json:"code"`
	DividendPerShare decimal.Decimal `json:"dividend_per_share"`
	Price            decimal.Decimal `json:"price"`
	TreasuryShares   *int64          `json:"treasury_shares,omitempty"`
	CancelledShares  *int64          `json:"cancelled_shares,omitempty"`
}

type TradeRequest struct {
	Symbol   string `json:"symbol"`
	Quantity string `json:"quantity"`
}

type TradeResult struct {
	Accepted       bool            `json:"accepted"`
	Message        string          `json:"message"`
	FilledSymbol   string          `json:"filled_symbol,omitempty"`
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
	OrderID        string          `json:"order_id,omitempty"`
	// Degraded is true when the order was signed with the local fallback hash.
	Degraded bool `json:"degraded,omitempty"`
}

type PortfolioEntry struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
}

// AccessToken is a brokerage bearer token with its validity window.
type AccessToken struct {
	Value      string
	ObtainedAt time.Time
	TTL        time.Duration
}

// Valid reports whether the token can still be used at now.
func (t AccessToken) Valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.ObtainedAt.Add(t.TTL))
}
