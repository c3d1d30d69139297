package brokerage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"scenario-advisor/internal/api"
	"scenario-advisor/internal/apperr"
	"scenario-advisor/internal/clock"
	"scenario-advisor/internal/interfaces"
	"scenario-advisor/internal/logger"
	"scenario-advisor/internal/metrics"
	"scenario-advisor/internal/store"
	"scenario-advisor/internal/types"
)

const orderPath = "/uapi/domestic-stock/v1/trading/order-cash"

// Config holds the resolved brokerage settings, secrets included.
type Config struct {
	BaseURL     string
	AppKey      string
	AppSecret   string
	Account     string
	ProductCode string
	OrderType   string
	TrID        string
	CustType    string

	TokenTTL          time.Duration
	Timeout           time.Duration
	RequestsPerSecond float64
}

// ConfigFrom merges the brokerage section of cfg with its secrets.
func ConfigFrom(cfg *store.Config, secrets store.Secrets) Config {
	b := cfg.Brokerage
	return Config{
		BaseURL:           b.BaseURL,
		AppKey:            secrets.BrokerAppKey,
		AppSecret:         secrets.BrokerAppSecret,
		Account:           secrets.BrokerAccount,
		ProductCode:       b.ProductCode,
		OrderType:         b.OrderType,
		TrID:              b.TrID,
		CustType:          b.CustType,
		TokenTTL:          b.TokenTTL,
		Timeout:           b.Timeout,
		RequestsPerSecond: b.RequestsPerSecond,
	}
}

// Client talks to the KIS-style REST API: token issuance, hashkey signing and cash orders.
type Client struct {
	cfg     Config
	http    *api.Client
	limiter *rate.Limiter
	clock   clock.Clock
	ledger  interfaces.Ledger
	trades  interfaces.TradeRecorder

	signBreaker *gobreaker.CircuitBreaker

	tokenMu    sync.Mutex
	token      types.AccessToken
	refreshing bool

	// serializes token refreshes; never taken while tokenMu is held
	refreshMu sync.Mutex
}

var _ interfaces.Brokerage = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// WithTradeRecorder mirrors every order outcome to r.
func WithTradeRecorder(r interfaces.TradeRecorder) Option {
	return func(c *Client) { c.trades = r }
}

func NewClient(cfg Config, ledger interfaces.Ledger, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		cfg: cfg,
		http: api.NewClient(
			api.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
			api.WithTimeout(cfg.Timeout),
			api.WithLogging(true),
		),
		limiter: rate.NewLimiter(limit, 1),
		clock:   clock.System{},
		ledger:  ledger,
		signBreaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "kis-hashkey",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type orderResponse struct {
	RtCd   string `json:"rt_cd"`
	MsgCd  string `json:"msg_cd"`
	Msg1   string `json:"msg1"`
	Output struct {
		KrxFwdgOrdOrgno string `json:"KRX_FWDG_ORD_ORGNO"`
		ODNO            string `json:"ODNO"`
		OrdTmd          string `json:"ORD_TMD"`
	} `json:"output"`
}

func parseQuantity(quantity string) (decimal.Decimal, error) {
	q := strings.TrimSpace(quantity)
	if q == "" {
		return decimal.Zero, apperr.Validationf("submit_order", "quantity must not be empty")
	}
	qty, err := decimal.NewFromString(q)
	if err != nil {
		return decimal.Zero, apperr.Validationf("submit_order", "quantity %q is not a number", quantity)
	}
	if qty.IsNegative() {
		return decimal.Zero, apperr.Validationf("submit_order", "quantity %s must not be negative", qty)
	}
	return qty, nil
}

// SubmitOrder places a market buy for quantity shares of symbol. The ledger is
// credited exactly once, and only when the brokerage accepts the order.
func (c *Client) SubmitOrder(ctx context.Context, symbol, quantity string) (types.TradeResult, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		err := apperr.Validationf("submit_order", "symbol must not be empty")
		return types.TradeResult{Message: err.Error()}, err
	}
	qty, err := parseQuantity(quantity)
	if err != nil {
		return types.TradeResult{Message: err.Error()}, err
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		res := types.TradeResult{Message: "access token unavailable: " + causeOf(err)}
		c.finish(ctx, symbol, quantity, res)
		return res, err
	}

	body := map[string]string{
		"CANO":         c.cfg.Account,
		"ACNT_PRDT_CD": c.cfg.ProductCode,
		"PDNO":         symbol,
		"ORD_DVSN":     c.cfg.OrderType,
		"ORD_QTY":      qty.String(),
		"ORD_UNPR":     "0",
	}

	sig, err := c.Sign(ctx, body)
	if err != nil {
		res := types.TradeResult{Message: "order signing failed: " + err.Error()}
		c.finish(ctx, symbol, quantity, res)
		return res, apperr.ExternalErr("submit_order", "order signing failed", err)
	}

	headers := map[string]string{
		"authorization": "Bearer " + token,
		"appkey":        c.cfg.AppKey,
		"appsecret":     c.cfg.AppSecret,
		"tr_id":         c.cfg.TrID,
		"custtype":      c.cfg.CustType,
		"hashkey":       sig.Hash,
	}

	res, err := c.postOrder(ctx, body, headers)
	res.Degraded = sig.Degraded
	if err != nil {
		c.finish(ctx, symbol, quantity, res)
		return res, apperr.ExternalErr("submit_order", "order not accepted", err)
	}

	c.ledger.Apply(symbol, qty)
	res.FilledSymbol = symbol
	res.FilledQuantity = qty
	c.finish(ctx, symbol, quantity, res)
	return res, nil
}

// postOrder sends the order and classifies the reply. Only an HTTP 2xx with rt_cd "0" is accepted.
func (c *Client) postOrder(ctx context.Context, body map[string]string, headers map[string]string) (types.TradeResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return types.TradeResult{Message: "order not sent: " + err.Error()}, err
	}

	resp, err := c.http.POST(ctx, orderPath, body, headers)
	if err != nil {
		return types.TradeResult{Message: "order request failed: " + err.Error()}, err
	}

	var out orderResponse
	if err := resp.ParseJSON(&out); err != nil {
		return types.TradeResult{Message: "order response unreadable: " + err.Error()}, err
	}
	if out.RtCd != "0" {
		msg := strings.TrimSpace(out.Msg1)
		if msg == "" {
			msg = "order rejected"
		}
		err := fmt.Errorf("rt_cd=%s msg_cd=%s: %s", out.RtCd, out.MsgCd, msg)
		return types.TradeResult{Message: msg}, err
	}

	return types.TradeResult{
		Accepted: true,
		Message:  strings.TrimSpace(out.Msg1),
		OrderID:  out.Output.ODNO,
	}, nil
}

func (c *Client) finish(ctx context.Context, symbol, quantity string, res types.TradeResult) {
	outcome := "rejected"
	if res.Accepted {
		outcome = "accepted"
	}
	metrics.Orders.WithLabelValues(outcome).Inc()
	logger.Trade(ctx, symbol, quantity, res.Accepted, res.OrderID, "message", res.Message, "degraded", res.Degraded)

	if c.trades != nil {
		if err := c.trades.AppendTrade(symbol, quantity, res); err != nil {
			logger.Warn(ctx, "Failed to mirror trade", "symbol", symbol, "error", err)
		}
	}
}

// causeOf returns the innermost message of an apperr chain.
func causeOf(err error) string {
	if e, ok := err.(*apperr.Error); ok && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}
