package fundamentals

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"scenario-advisor/internal/apperr"
	"scenario-advisor/internal/types"
)

// SampleSource serves a fixed dataset. It is the default provider and the one tests rank against.
type SampleSource struct {
	records []types.CompanyRecord
}

func shares(n int64) *int64 { return &n }

func record(name, symbol, code string, dps, price int64, treasury, cancelled *int64) types.CompanyRecord {
	return types.CompanyRecord{
		Name:             name,
		Symbol:           symbol,
		Code:             code,
		DividendPerShare: decimal.NewFromInt(dps),
		Price:            decimal.NewFromInt(price),
		TreasuryShares:   treasury,
		CancelledShares:  cancelled,
	}
}

// SampleRecords is the built-in dataset, prices and dividends in KRW.
func SampleRecords() []types.CompanyRecord {
	return []types.CompanyRecord{
		record("삼성전자", "005930", "KRX", 1444, 71000, shares(0), nil),
		record("SK텔레콤", "017670", "KRX", 3540, 51500, shares(3_000_000), shares(0)),
		record("KT&G", "033780", "KRX", 5200, 92000, shares(13_900_000), shares(1_000_000)),
		record("기업은행", "024110", "KRX", 984, 13700, shares(0), nil),
		record("하나금융지주", "086790", "KRX", 3400, 57300, shares(2_100_000), shares(0)),
		record("현대차", "005380", "KRX", 11400, 245000, shares(8_800_000), shares(0)),
		record("카카오", "035720", "KRX", 61, 44500, shares(600_000), nil),
		record("POSCO홀딩스", "005490", "KRX", 10000, 380000, shares(10_600_000), shares(0)),
	}
}

func NewSampleSource(records ...types.CompanyRecord) *SampleSource {
	if len(records) == 0 {
		records = SampleRecords()
	}
	return &SampleSource{records: append([]types.CompanyRecord(nil), records...)}
}

func (s *SampleSource) Lookup(ctx context.Context, query string) ([]types.CompanyRecord, error) {
	return lookup(s.records, query)
}

func (s *SampleSource) All(ctx context.Context) ([]types.CompanyRecord, error) {
	return append([]types.CompanyRecord(nil), s.records...), nil
}

// lookup filters records whose name or symbol contains query, case-insensitively.
func lookup(records []types.CompanyRecord, query string) ([]types.CompanyRecord, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, apperr.Validationf("lookup", "query must not be empty")
	}

	var out []types.CompanyRecord
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Name), q) || strings.Contains(strings.ToLower(r.Symbol), q) {
			out = append(out, r)
		}
	}
	return out, nil
}
