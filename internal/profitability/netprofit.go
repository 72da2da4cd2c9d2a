package profitability

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidPeriod is returned for a period with a missing bound or an end
// before its start.
var ErrInvalidPeriod = errors.New("invalid period")

var two = decimal.NewFromInt(2)

// MonthBucket is one whole calendar month touched by a period.
type MonthBucket struct {
	Start     time.Time       `json:"start"`
	End       time.Time       `json:"end"`
	FixedCost decimal.Decimal `json:"fixedCost"`
}

// NetProfitResult is the outcome of ComputeNetProfit. Exactly one of
// GrossProfit and ApproximateTaxes is valid.
type NetProfitResult struct {
	Months           []MonthBucket       `json:"months"`
	MonthCount       int                 `json:"monthCount"`
	TotalFixedCost   decimal.Decimal     `json:"totalFixedCost"`
	GrossProfit      decimal.NullDecimal `json:"grossProfit"`
	ApproximateTaxes decimal.NullDecimal `json:"approximateTaxes"`
	NetProfit        decimal.Decimal     `json:"netProfit"`
}

// Months partitions [start, end] into the calendar months it touches, in
// start's location. Each bucket spans its whole month even when the period
// only covers part of it; End is the last instant of the month.
func Months(start, end time.Time) ([]MonthBucket, error) {
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("period bounds are required: %w", ErrInvalidPeriod)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("period ends before it starts: %w", ErrInvalidPeriod)
	}

	loc := start.Location()
	end = end.In(loc)

	var buckets []MonthBucket
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, loc)
	for !cursor.After(end) {
		next := cursor.AddDate(0, 1, 0)
		buckets = append(buckets, MonthBucket{Start: cursor, End: next.Add(-time.Nanosecond)})
		cursor = next
	}
	return buckets, nil
}

// ComputeNetProfit subtracts the fixed costs of every month touched by
// [periodStart, periodEnd] from the period's profit.
//
// When aggregate includes at least one quote its TotalProfit is the gross
// profit. Otherwise taxes are approximated from acceptedRevenue with the mean
// of the material and service tax rates in force at periodEnd.
func ComputeNetProfit(
	periodStart, periodEnd time.Time,
	aggregate *AggregateProfitability,
	acceptedRevenue decimal.Decimal,
	configs *ConfigBook,
) (NetProfitResult, error) {
	months, err := Months(periodStart, periodEnd)
	if err != nil {
		return NetProfitResult{}, err
	}

	res := NetProfitResult{Months: months, MonthCount: len(months)}
	for i := range res.Months {
		m := &res.Months[i]
		m.FixedCost = configs.ResolveForMonth(m.Start, m.End).MonthlyFixedCost
		res.TotalFixedCost = res.TotalFixedCost.Add(m.FixedCost)
	}

	if aggregate != nil && aggregate.IncludedCount > 0 {
		res.GrossProfit = decimal.NewNullDecimal(aggregate.TotalProfit)
		res.NetProfit = aggregate.TotalProfit.Sub(res.TotalFixedCost)
		return res, nil
	}

	cfg := configs.Resolve(periodEnd)
	rate := cfg.MaterialTaxPercent.Add(cfg.ServiceTaxPercent).Div(two)
	taxes := percentOf(acceptedRevenue, rate)
	res.ApproximateTaxes = decimal.NewNullDecimal(taxes)
	res.NetProfit = acceptedRevenue.Sub(taxes).Sub(res.TotalFixedCost)
	return res, nil
}
