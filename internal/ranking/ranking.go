package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"scenario-advisor/internal/query"
	"scenario-advisor/internal/types"
)

var hundred = decimal.NewFromInt(100)

// Ranked is one dividend-ranking row.
type Ranked struct {
	Record types.CompanyRecord `json:"record"`
	Yield  decimal.Decimal     `json:"yield"`
}

func (r Ranked) String() string {
	return fmt.Sprintf("%s(%s): %s%%", r.Record.Name, r.Record.Symbol, r.Yield.Mul(hundred).StringFixed(2))
}

// Result is the outcome of performing an intent.
type Result struct {
	Performed bool     `json:"performed"`
	Title     string   `json:"title,omitempty"`
	Lines     []string `json:"lines,omitempty"`
	Ranked    []Ranked `json:"ranked,omitempty"`
	// Placeholder marks example output that is not computed from data.
	Placeholder bool   `json:"placeholder,omitempty"`
	Message     string `json:"message,omitempty"`
}

func (r Result) String() string {
	if !r.Performed {
		return r.Message
	}
	var b strings.Builder
	b.WriteString(r.Title)
	for _, l := range r.Lines {
		b.WriteString("\n")
		b.WriteString(l)
	}
	return b.String()
}

// Yield is dividend per share over price; a zero price yields zero.
func Yield(rec types.CompanyRecord) decimal.Decimal {
	if rec.Price.IsZero() {
		return decimal.Zero
	}
	return rec.DividendPerShare.DivRound(rec.Price, 8)
}

// compareYield orders a and b by exact yield using cross products, so yields
// that differ past the displayed precision still sort apart.
func compareYield(a, b types.CompanyRecord) int {
	switch {
	case a.Price.IsZero() && b.Price.IsZero():
		return 0
	case a.Price.IsZero():
		return -yieldSign(b)
	case b.Price.IsZero():
		return yieldSign(a)
	}
	c := a.DividendPerShare.Mul(b.Price).Cmp(b.DividendPerShare.Mul(a.Price))
	if a.Price.Sign() != b.Price.Sign() {
		c = -c
	}
	return c
}

func yieldSign(r types.CompanyRecord) int {
	return r.DividendPerShare.Sign() * r.Price.Sign()
}

// DividendRank orders records by yield descending, keeping input order among
// equal yields, and returns at most n rows.
func DividendRank(n int, records []types.CompanyRecord) []Ranked {
	ranked := make([]Ranked, len(records))
	for i, rec := range records {
		ranked[i] = Ranked{Record: rec, Yield: Yield(rec)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return compareYield(ranked[i].Record, ranked[j].Record) > 0
	})
	if n >= 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// BuybackScreen returns labelled example output; treasury-share screening is not computed.
func BuybackScreen(records []types.CompanyRecord) Result {
	return Result{
		Performed:   true,
		Title:       "Example Companies:",
		Lines:       []string{"회사A", "회사B", "회사C"},
		Placeholder: true,
	}
}

// Perform dispatches intent over records.
func Perform(intent query.Intent, records []types.CompanyRecord) Result {
	switch intent.Kind {
	case query.DividendRank:
		ranked := DividendRank(intent.N, records)
		lines := make([]string, len(ranked))
		for i, r := range ranked {
			lines[i] = r.String()
		}
		return Result{
			Performed: true,
			Title:     fmt.Sprintf("Top %d by dividend yield:", intent.N),
			Lines:     lines,
			Ranked:    ranked,
		}
	case query.BuybackScreen:
		return BuybackScreen(records)
	default:
		return NothingToPerform()
	}
}

// NothingToPerform is the result for an unrecognized or missing intent.
func NothingToPerform() Result {
	return Result{Message: "nothing to perform"}
}
