package profitability

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%s = %s, want %s", field, got, want)
}

const extinguisher = "Extinguisher 6kg"

func extinguisherHistory() []ItemCostRecord {
	key := NewItemKey(extinguisher)
	return []ItemCostRecord{
		{Key: key, EffectiveAt: day("2024-01-01"), MaterialUnitCost: dec("80"), LaborUnitCost: dec("20")},
		{Key: key, EffectiveAt: day("2024-06-01"), MaterialUnitCost: dec("100"), LaborUnitCost: dec("25")},
	}
}

func taxConfig() []ConfigRecord {
	return []ConfigRecord{{
		EffectiveAt: day("2024-01-01"),
		Config: Config{
			MonthlyFixedCost:   dec("3000"),
			MaterialTaxPercent: dec("10"),
			ServiceTaxPercent:  dec("5"),
		},
	}}
}

func acceptedQuote(id int64, issued string, items ...QuoteLineItem) Quote {
	return Quote{
		ID:        id,
		Number:    "ORC-" + issued,
		IssuedAt:  day(issued),
		Status:    StatusAccepted,
		LineItems: items,
	}
}

func TestNewItemKey_Normalizes(t *testing.T) {
	assert.Equal(t, NewItemKey(extinguisher), NewItemKey("  EXTINGUISHER \t 6KG "))
	assert.Equal(t, ItemKey("extinguisher 6kg"), NewItemKey(extinguisher))
}

func TestCostBook_ResolvesHistoricalCost(t *testing.T) {
	book := NewCostBook(extinguisherHistory(), nil)

	got := book.Resolve(NewItemKey(extinguisher), day("2024-03-15"))
	assertDecimal(t, "80", got.MaterialUnitCost, "material")
	assertDecimal(t, "20", got.LaborUnitCost, "labor")

	got = book.Resolve(NewItemKey(extinguisher), day("2024-07-01"))
	assertDecimal(t, "100", got.MaterialUnitCost, "material")
}

func TestCostBook_FallsBackToLiveItem(t *testing.T) {
	key := NewItemKey("Hose 30m")
	live := []LiveItem{{Key: key, MaterialUnitCost: dec("55"), LaborUnitCost: dec("0")}}

	t.Run("empty history", func(t *testing.T) {
		got := NewCostBook(nil, live).Resolve(key, day("2024-03-01"))
		assertDecimal(t, "55", got.MaterialUnitCost, "material")
	})

	t.Run("resolved record has no cost", func(t *testing.T) {
		history := []ItemCostRecord{{Key: key, EffectiveAt: day("2024-01-01"), MaterialUnitCost: dec("0"), LaborUnitCost: dec("0")}}
		got := NewCostBook(history, live).Resolve(key, day("2024-03-01"))
		assertDecimal(t, "55", got.MaterialUnitCost, "material")
	})

	t.Run("unknown item", func(t *testing.T) {
		book := NewCostBook(nil, live)
		got := book.Resolve(NewItemKey("Sprinkler"), day("2024-03-01"))
		assertDecimal(t, "0", got.MaterialUnitCost, "material")
		assertDecimal(t, "0", got.LaborUnitCost, "labor")
		assert.False(t, book.HasResolvableCost(NewItemKey("Sprinkler"), day("2024-03-01")))
	})
}

func TestResolveItemCost_LaborOnlyIsResolvable(t *testing.T) {
	key := NewItemKey("Inspection")
	history := []ItemCostRecord{{Key: key, EffectiveAt: day("2024-01-01"), LaborUnitCost: dec("40")}}

	got := ResolveItemCost(key, day("2024-02-01"), history, nil)
	assertDecimal(t, "40", got.LaborUnitCost, "labor")
	assert.True(t, got.IsKnown())
}

func TestConfigBook_ZeroValuesAreLegitimate(t *testing.T) {
	history := []ConfigRecord{{EffectiveAt: day("2024-01-01"), Config: Config{}}}
	live := Config{MonthlyFixedCost: dec("999"), MaterialTaxPercent: dec("12")}

	got := ResolveConfig(day("2024-02-01"), history, live)
	assertDecimal(t, "0", got.MonthlyFixedCost, "fixed cost")
	assertDecimal(t, "0", got.MaterialTaxPercent, "material tax")

	got = ResolveConfig(day("2024-02-01"), nil, live)
	assertDecimal(t, "999", got.MonthlyFixedCost, "fixed cost")
}

func TestConfigBook_ResolveForMonth_MidMonthChangeCoversWholeMonth(t *testing.T) {
	history := []ConfigRecord{
		{EffectiveAt: day("2024-01-01"), Config: Config{MonthlyFixedCost: dec("1000")}},
		{EffectiveAt: day("2024-03-20"), Config: Config{MonthlyFixedCost: dec("1500")}},
	}
	months, err := Months(day("2024-03-01"), day("2024-03-31"))
	require.NoError(t, err)

	got := ResolveConfigForMonth(months[0].Start, months[0].End, history, Config{})
	assertDecimal(t, "1500", got.MonthlyFixedCost, "march fixed cost")

	// A plain point lookup at the start of March still sees the old value.
	assertDecimal(t, "1000", ResolveConfig(day("2024-03-01"), history, Config{}).MonthlyFixedCost, "march 1st")
}

func TestAnalyze_UsesCostsInForceAtIssue(t *testing.T) {
	q := acceptedQuote(1, "2024-03-15", QuoteLineItem{
		Description:       extinguisher,
		Quantity:          dec("5"),
		MaterialSaleTotal: dec("1000"),
		LaborSaleTotal:    dec("1000"),
	})

	analysis, err := Analyze([]Quote{q}, NewCostBook(extinguisherHistory(), nil), NewConfigBook(taxConfig(), Config{}))
	require.NoError(t, err)
	require.Len(t, analysis.Quotes, 1)

	p := analysis.Quotes[0]
	assertDecimal(t, "400", p.MaterialCost, "materialCost")
	assertDecimal(t, "100", p.LaborCost, "laborCost")
	assertDecimal(t, "100", p.MaterialTax, "materialTax")
	assertDecimal(t, "50", p.LaborTax, "laborTax")
	assertDecimal(t, "500", p.MaterialProfit, "materialProfit")
	assertDecimal(t, "850", p.LaborProfit, "laborProfit")
	assertDecimal(t, "1350", p.TotalProfit, "totalProfit")
	assertDecimal(t, "67.5", p.Margin, "margin")

	assert.Equal(t, 1, analysis.Aggregate.IncludedCount)
	assert.Equal(t, 0, analysis.Aggregate.ExcludedCount)
	assertDecimal(t, "67.5", analysis.Aggregate.AverageMargin, "averageMargin")
}

func TestAnalyze_ExcludesQuoteWithUnknownLineCost(t *testing.T) {
	q := acceptedQuote(7, "2024-03-15",
		QuoteLineItem{Description: extinguisher, Quantity: dec("1"), MaterialSaleTotal: dec("200")},
		QuoteLineItem{Description: "Custom bracket", Quantity: dec("2"), LaborSaleTotal: dec("90")},
	)

	analysis, err := Analyze([]Quote{q}, NewCostBook(extinguisherHistory(), nil), NewConfigBook(taxConfig(), Config{}))
	require.NoError(t, err)

	assert.Empty(t, analysis.Quotes)
	assert.Equal(t, 1, analysis.Aggregate.ExcludedCount)
	assert.Equal(t, 0, analysis.Aggregate.IncludedCount)
	assertDecimal(t, "0", analysis.Aggregate.TotalProfit, "totalProfit")
	assertDecimal(t, "0", analysis.Aggregate.MaterialSale, "materialSale")
}

func TestAnalyze_IgnoresQuotesNotAccepted(t *testing.T) {
	open := acceptedQuote(1, "2024-03-15", QuoteLineItem{Description: "Unknown"})
	open.Status = StatusOpen
	rejected := acceptedQuote(2, "2024-03-15")
	rejected.Status = StatusRejected

	analysis, err := Analyze([]Quote{open, rejected}, NewCostBook(nil, nil), NewConfigBook(nil, Config{}))
	require.NoError(t, err)
	assert.Empty(t, analysis.Quotes)
	assert.Equal(t, 0, analysis.Aggregate.ExcludedCount)
}

func TestAnalyze_ZeroSaleHasZeroMargin(t *testing.T) {
	q := acceptedQuote(3, "2024-03-15", QuoteLineItem{
		Description: extinguisher,
		Quantity:    dec("1"),
	})

	analysis, err := Analyze([]Quote{q}, NewCostBook(extinguisherHistory(), nil), NewConfigBook(taxConfig(), Config{}))
	require.NoError(t, err)
	require.Len(t, analysis.Quotes, 1)
	assertDecimal(t, "0", analysis.Quotes[0].Margin, "margin")
	assertDecimal(t, "-100", analysis.Quotes[0].TotalProfit, "totalProfit")
}

func TestAnalyze_MissingIssueDateFailsFast(t *testing.T) {
	q := acceptedQuote(9, "2024-03-15")
	q.IssuedAt = time.Time{}

	_, err := Analyze([]Quote{q}, NewCostBook(nil, nil), NewConfigBook(nil, Config{}))
	require.ErrorIs(t, err, ErrMissingReferenceDate)
}

func TestAnalyze_AggregateIsSumOfQuotes(t *testing.T) {
	quotes := []Quote{
		acceptedQuote(1, "2024-02-10", QuoteLineItem{Description: extinguisher, Quantity: dec("3"), MaterialSaleTotal: dec("333.33"), LaborSaleTotal: dec("77.77")}),
		acceptedQuote(2, "2024-06-15", QuoteLineItem{Description: extinguisher, Quantity: dec("1.5"), MaterialSaleTotal: dec("190.01"), LaborSaleTotal: dec("45.5")}),
		acceptedQuote(3, "2024-08-01", QuoteLineItem{Description: extinguisher, Quantity: dec("7"), MaterialSaleTotal: dec("901"), LaborSaleTotal: dec("0.03")}),
	}

	analysis, err := Snapshot{
		Quotes:    quotes,
		ItemCosts: extinguisherHistory(),
		Configs:   taxConfig(),
	}.Analyze()
	require.NoError(t, err)
	require.Len(t, analysis.Quotes, 3)

	var sum Totals
	marginSum := decimal.Zero
	for _, p := range analysis.Quotes {
		sum = sum.Add(p.Totals)
		marginSum = marginSum.Add(p.Margin)
	}
	assert.True(t, sum.TotalProfit.Equal(analysis.Aggregate.TotalProfit))
	assert.True(t, sum.MaterialCost.Equal(analysis.Aggregate.MaterialCost))
	assert.True(t, sum.LaborTax.Equal(analysis.Aggregate.LaborTax))
	assert.True(t, marginSum.Div(decimal.NewFromInt(3)).Equal(analysis.Aggregate.AverageMargin))
}

func TestAcceptedRevenue(t *testing.T) {
	accepted := acceptedQuote(1, "2024-03-01", QuoteLineItem{MaterialSaleTotal: dec("100"), LaborSaleTotal: dec("50")})
	open := acceptedQuote(2, "2024-03-01", QuoteLineItem{MaterialSaleTotal: dec("999")})
	open.Status = StatusOpen

	assertDecimal(t, "150", AcceptedRevenue([]Quote{accepted, open}), "revenue")
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusExpired.Valid())
	assert.False(t, Status("draft").Valid())
}
