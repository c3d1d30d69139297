package journal

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// SymbolSummary aggregates one day's orders for a symbol.
type SymbolSummary struct {
	Symbol   string
	Accepted int
	Rejected int
	Degraded int
	Bought   decimal.Decimal
	Sold     decimal.Decimal
}

// Net is the signed quantity change from accepted orders.
func (s SymbolSummary) Net() decimal.Decimal {
	return s.Bought.Sub(s.Sold)
}

func (s *FileSink) summaryPath(t time.Time) string {
	return filepath.Join(s.dir, "summary", t.Format("2006-01-02")+".csv")
}

// SummarizeDay reads the trade mirror for day and aggregates it by symbol.
// A day with no trade file yields no rows and no error.
func (s *FileSink) SummarizeDay(day time.Time) ([]SymbolSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.dailyFilepath("trades", day))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	aggs := map[string]*SymbolSummary{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var te TradeEntry
		if err := json.Unmarshal(sc.Bytes(), &te); err != nil {
			continue
		}
		row := aggs[te.Symbol]
		if row == nil {
			row = &SymbolSummary{Symbol: te.Symbol}
			aggs[te.Symbol] = row
		}
		if !te.Result.Accepted {
			row.Rejected++
			continue
		}
		row.Accepted++
		if te.Result.Degraded {
			row.Degraded++
		}
		q := te.Result.FilledQuantity
		if q.IsNegative() {
			row.Sold = row.Sold.Add(q.Neg())
		} else {
			row.Bought = row.Bought.Add(q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	rows := make([]SymbolSummary, 0, len(aggs))
	for _, r := range aggs {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })
	return rows, nil
}

// WriteDaySummary writes day's summary as CSV under dir/summary and returns the path.
// It returns "" when there were no trades that day.
func (s *FileSink) WriteDaySummary(day time.Time) (string, error) {
	rows, err := s.SummarizeDay(day)
	if err != nil || len(rows) == 0 {
		return "", err
	}

	outPath := s.summaryPath(day)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write([]string{"symbol", "accepted", "rejected", "degraded", "bought", "sold", "net"}); err != nil {
		return "", err
	}
	var accepted, rejected int
	for _, r := range rows {
		rec := []string{r.Symbol, strconv.Itoa(r.Accepted), strconv.Itoa(r.Rejected), strconv.Itoa(r.Degraded),
			r.Bought.String(), r.Sold.String(), r.Net().String()}
		if err := w.Write(rec); err != nil {
			return "", err
		}
		accepted += r.Accepted
		rejected += r.Rejected
	}
	_ = w.Write([]string{"TOTAL", strconv.Itoa(accepted), strconv.Itoa(rejected), "", "", "", ""})
	w.Flush()
	return outPath, w.Error()
}

// WriteTodaySummary summarizes the current day.
func (s *FileSink) WriteTodaySummary() (string, error) {
	return s.WriteDaySummary(s.now())
}
