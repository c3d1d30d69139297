package ranking

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenario-advisor/internal/query"
	"scenario-advisor/internal/types"
)

func rec(name string, dps, price int64) types.CompanyRecord {
	return types.CompanyRecord{
		Name:             name,
		Symbol:           name + "X",
		DividendPerShare: decimal.NewFromInt(dps),
		Price:            decimal.NewFromInt(price),
	}
}

func names(rs []Ranked) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Record.Name
	}
	return out
}

func TestDividendRankOrdersByYield(t *testing.T) {
	records := []types.CompanyRecord{
		rec("low", 1, 100),
		rec("high", 10, 100),
		rec("mid", 5, 100),
	}
	got := DividendRank(2, records)
	assert.Equal(t, []string{"high", "mid"}, names(got))
	assert.Equal(t, "high(highX): 10.00%", got[0].String())
}

func TestDividendRankTiesKeepInputOrder(t *testing.T) {
	records := []types.CompanyRecord{
		rec("a", 2, 100),
		rec("b", 4, 200),
		rec("c", 1, 50),
		rec("top", 9, 100),
	}
	got := DividendRank(10, records)
	assert.Equal(t, []string{"top", "a", "b", "c"}, names(got))
}

func TestDividendRankSeparatesNearYields(t *testing.T) {
	records := []types.CompanyRecord{rec("a", 1, 300000001), rec("b", 1, 300000000)}
	got := DividendRank(2, records)
	assert.Equal(t, []string{"b", "a"}, names(got))
	assert.True(t, got[0].Yield.Equal(got[1].Yield), "display yields still round together")
}

func TestDividendRankNExceedsRecords(t *testing.T) {
	records := []types.CompanyRecord{rec("a", 1, 10), rec("b", 2, 10)}
	assert.Len(t, DividendRank(50, records), 2)
	assert.Empty(t, DividendRank(3, nil))
}

func TestDividendRankZeroPrice(t *testing.T) {
	records := []types.CompanyRecord{rec("free", 100, 0), rec("paid", 1, 100)}
	got := DividendRank(2, records)
	require.Len(t, got, 2)
	assert.Equal(t, "paid", got[0].Record.Name)
	assert.True(t, got[1].Yield.IsZero())
	assert.Equal(t, "free(freeX): 0.00%", got[1].String())
}

func TestDividendRankIsDeterministic(t *testing.T) {
	records := []types.CompanyRecord{rec("a", 3, 70), rec("b", 3, 70), rec("c", 7, 90)}
	first := DividendRank(3, records)
	second := DividendRank(3, records)
	assert.Equal(t, first, second)
	assert.Equal(t, "a", records[0].Name, "input must not be reordered")
}

func TestYieldFormatting(t *testing.T) {
	r := Ranked{Record: rec("삼성전자", 1444, 71000)}
	r.Yield = Yield(r.Record)
	assert.Equal(t, "삼성전자(삼성전자X): 2.03%", r.String())
}

func TestPerform(t *testing.T) {
	records := []types.CompanyRecord{rec("a", 1, 10), rec("b", 3, 10), rec("c", 2, 10)}

	res := Perform(query.Intent{Kind: query.DividendRank, N: 2}, records)
	assert.True(t, res.Performed)
	assert.Equal(t, []string{"b(bX): 30.00%", "c(cX): 20.00%"}, res.Lines)
	assert.Equal(t, "Top 2 by dividend yield:\nb(bX): 30.00%\nc(cX): 20.00%", res.String())

	res = Perform(query.Intent{Kind: query.BuybackScreen}, records)
	assert.True(t, res.Placeholder)
	assert.Equal(t, "Example Companies:\n회사A\n회사B\n회사C", res.String())

	res = Perform(query.Intent{Kind: query.Unrecognized}, records)
	assert.False(t, res.Performed)
	assert.Equal(t, "nothing to perform", res.String())
}
