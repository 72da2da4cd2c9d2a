package profitability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonths_NotProrated(t *testing.T) {
	months, err := Months(day("2024-01-30"), day("2024-02-02"))
	require.NoError(t, err)
	require.Len(t, months, 2)

	assert.Equal(t, day("2024-01-01"), months[0].Start)
	assert.Equal(t, day("2024-02-01").Add(-time.Nanosecond), months[0].End)
	assert.Equal(t, day("2024-02-01"), months[1].Start)
	assert.Equal(t, day("2024-03-01").Add(-time.Nanosecond), months[1].End)
}

func TestMonths_CrossesYear(t *testing.T) {
	months, err := Months(day("2023-11-15"), day("2024-01-01"))
	require.NoError(t, err)
	assert.Len(t, months, 3)
}

func TestMonths_InvalidPeriod(t *testing.T) {
	_, err := Months(day("2024-02-01"), day("2024-01-01"))
	require.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = Months(time.Time{}, day("2024-01-01"))
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestComputeNetProfit_ShortPeriodChargesWholeMonths(t *testing.T) {
	configs := NewConfigBook(taxConfig(), Config{})
	aggregate := &AggregateProfitability{IncludedCount: 1}
	aggregate.TotalProfit = dec("10000")

	res, err := ComputeNetProfit(day("2024-01-30"), day("2024-02-02"), aggregate, dec("0"), configs)
	require.NoError(t, err)

	assert.Equal(t, 2, res.MonthCount)
	assertDecimal(t, "6000", res.TotalFixedCost, "totalFixedCost")
	require.True(t, res.GrossProfit.Valid)
	assertDecimal(t, "10000", res.GrossProfit.Decimal, "grossProfit")
	assert.False(t, res.ApproximateTaxes.Valid)
	assertDecimal(t, "4000", res.NetProfit, "netProfit")
}

func TestComputeNetProfit_OldestRecordCoversEarlierMonths(t *testing.T) {
	history := []ConfigRecord{{EffectiveAt: day("2024-05-01"), Config: Config{MonthlyFixedCost: dec("3000")}}}
	configs := NewConfigBook(history, Config{MonthlyFixedCost: dec("1")})

	res, err := ComputeNetProfit(day("2024-04-01"), day("2024-06-30"), nil, dec("0"), configs)
	require.NoError(t, err)

	assert.Equal(t, 3, res.MonthCount)
	for _, m := range res.Months {
		assertDecimal(t, "3000", m.FixedCost, m.Start.Format("2006-01"))
	}
	assertDecimal(t, "9000", res.TotalFixedCost, "totalFixedCost")
}

func TestComputeNetProfit_RevenueApproximationWithoutCostData(t *testing.T) {
	history := []ConfigRecord{
		{EffectiveAt: day("2024-01-01"), Config: Config{MonthlyFixedCost: dec("3000"), MaterialTaxPercent: dec("4"), ServiceTaxPercent: dec("2")}},
		{EffectiveAt: day("2024-03-10"), Config: Config{MonthlyFixedCost: dec("3000"), MaterialTaxPercent: dec("10"), ServiceTaxPercent: dec("6")}},
	}
	configs := NewConfigBook(history, Config{})

	for name, aggregate := range map[string]*AggregateProfitability{
		"nil aggregate":    nil,
		"nothing included": {ExcludedCount: 2},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := ComputeNetProfit(day("2024-03-01"), day("2024-03-31"), aggregate, dec("10000"), configs)
			require.NoError(t, err)

			assert.False(t, res.GrossProfit.Valid)
			require.True(t, res.ApproximateTaxes.Valid)
			// Rates at period end: (10 + 6) / 2 = 8%.
			assertDecimal(t, "800", res.ApproximateTaxes.Decimal, "approximateTaxes")
			assertDecimal(t, "3000", res.TotalFixedCost, "totalFixedCost")
			assertDecimal(t, "6200", res.NetProfit, "netProfit")
		})
	}
}

func TestComputeNetProfit_InvalidPeriod(t *testing.T) {
	_, err := ComputeNetProfit(day("2024-03-01"), day("2024-02-01"), nil, dec("0"), NewConfigBook(nil, Config{}))
	require.ErrorIs(t, err, ErrInvalidPeriod)
}
