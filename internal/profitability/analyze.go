package profitability

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMissingReferenceDate is returned when a quote has no issue date to
// resolve historical costs and taxes against.
var ErrMissingReferenceDate = errors.New("missing reference date")

var hundred = decimal.NewFromInt(100)

// Status is the lifecycle state of a quote.
type Status string

const (
	StatusOpen     Status = "open"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusAccepted, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// QuoteLineItem is one priced line of a quote.
type QuoteLineItem struct {
	Description       string          `json:"description"`
	Quantity          decimal.Decimal `json:"quantity"`
	MaterialSaleTotal decimal.Decimal `json:"materialSaleTotal"`
	LaborSaleTotal    decimal.Decimal `json:"laborSaleTotal"`
}

// Key returns the normalized catalog key of the line's description.
func (li QuoteLineItem) Key() ItemKey {
	return NewItemKey(li.Description)
}

// Quote is a priced proposal sent to a client.
type Quote struct {
	ID         int64           `json:"id"`
	Number     string          `json:"number"`
	ClientName string          `json:"clientName"`
	IssuedAt   time.Time       `json:"issuedAt"`
	AcceptedAt *time.Time      `json:"acceptedAt,omitempty"`
	Status     Status          `json:"status"`
	Notes      string          `json:"notes,omitempty"`
	LineItems  []QuoteLineItem `json:"lineItems"`
}

// SaleTotal is the sum of material and labor sale totals.
func (q Quote) SaleTotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range q.LineItems {
		total = total.Add(li.MaterialSaleTotal).Add(li.LaborSaleTotal)
	}
	return total
}

// Totals holds the money figures shared by per-quote and aggregate results.
type Totals struct {
	MaterialSale   decimal.Decimal `json:"materialSale"`
	LaborSale      decimal.Decimal `json:"laborSale"`
	MaterialCost   decimal.Decimal `json:"materialCost"`
	LaborCost      decimal.Decimal `json:"laborCost"`
	MaterialTax    decimal.Decimal `json:"materialTax"`
	LaborTax       decimal.Decimal `json:"laborTax"`
	MaterialProfit decimal.Decimal `json:"materialProfit"`
	LaborProfit    decimal.Decimal `json:"laborProfit"`
	TotalProfit    decimal.Decimal `json:"totalProfit"`
}

// Add returns the field-wise sum of t and o.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		MaterialSale:   t.MaterialSale.Add(o.MaterialSale),
		LaborSale:      t.LaborSale.Add(o.LaborSale),
		MaterialCost:   t.MaterialCost.Add(o.MaterialCost),
		LaborCost:      t.LaborCost.Add(o.LaborCost),
		MaterialTax:    t.MaterialTax.Add(o.MaterialTax),
		LaborTax:       t.LaborTax.Add(o.LaborTax),
		MaterialProfit: t.MaterialProfit.Add(o.MaterialProfit),
		LaborProfit:    t.LaborProfit.Add(o.LaborProfit),
		TotalProfit:    t.TotalProfit.Add(o.TotalProfit),
	}
}

// QuoteProfitability is the profit breakdown of one included quote.
type QuoteProfitability struct {
	QuoteID  int64     `json:"quoteId"`
	Number   string    `json:"number"`
	IssuedAt time.Time `json:"issuedAt"`
	Totals
	// Margin is TotalProfit as a percentage of the sale total.
	Margin decimal.Decimal `json:"margin"`
}

// AggregateProfitability sums the included quotes.
type AggregateProfitability struct {
	Totals
	// AverageMargin is the mean of the per-quote margins.
	AverageMargin decimal.Decimal `json:"averageMargin"`
	IncludedCount int             `json:"includedCount"`
	// ExcludedCount counts accepted quotes skipped for incomplete cost data.
	ExcludedCount int `json:"excludedCount"`
}

// Analysis is the output of one profitability run.
type Analysis struct {
	Quotes    []QuoteProfitability   `json:"quotes"`
	Aggregate AggregateProfitability `json:"aggregate"`
}

// Analyze computes the profitability of every accepted quote in quotes.
//
// Costs and taxes are resolved at each quote's IssuedAt. A quote with any
// line item lacking a positive resolvable cost is excluded and counted in
// Aggregate.ExcludedCount. Quotes in other statuses are ignored.
func Analyze(quotes []Quote, costs *CostBook, configs *ConfigBook) (Analysis, error) {
	analysis := Analysis{Quotes: make([]QuoteProfitability, 0, len(quotes))}
	marginSum := decimal.Zero

	for _, q := range quotes {
		if q.Status != StatusAccepted {
			continue
		}
		if q.IssuedAt.IsZero() {
			return Analysis{}, fmt.Errorf("quote %d: %w", q.ID, ErrMissingReferenceDate)
		}
		if !costsKnown(q, costs) {
			analysis.Aggregate.ExcludedCount++
			continue
		}

		p := analyzeQuote(q, costs, configs.Resolve(q.IssuedAt))
		analysis.Quotes = append(analysis.Quotes, p)
		analysis.Aggregate.Totals = analysis.Aggregate.Totals.Add(p.Totals)
		analysis.Aggregate.IncludedCount++
		marginSum = marginSum.Add(p.Margin)
	}

	if n := analysis.Aggregate.IncludedCount; n > 0 {
		analysis.Aggregate.AverageMargin = marginSum.Div(decimal.NewFromInt(int64(n)))
	}
	return analysis, nil
}

func costsKnown(q Quote, costs *CostBook) bool {
	for _, li := range q.LineItems {
		if !costs.HasResolvableCost(li.Key(), q.IssuedAt) {
			return false
		}
	}
	return true
}

func analyzeQuote(q Quote, costs *CostBook, cfg Config) QuoteProfitability {
	var t Totals
	for _, li := range q.LineItems {
		unit := costs.Resolve(li.Key(), q.IssuedAt)
		t.MaterialSale = t.MaterialSale.Add(li.MaterialSaleTotal)
		t.LaborSale = t.LaborSale.Add(li.LaborSaleTotal)
		t.MaterialCost = t.MaterialCost.Add(unit.MaterialUnitCost.Mul(li.Quantity))
		t.LaborCost = t.LaborCost.Add(unit.LaborUnitCost.Mul(li.Quantity))
	}

	t.MaterialTax = percentOf(t.MaterialSale, cfg.MaterialTaxPercent)
	t.LaborTax = percentOf(t.LaborSale, cfg.ServiceTaxPercent)
	t.MaterialProfit = t.MaterialSale.Sub(t.MaterialCost).Sub(t.MaterialTax)
	t.LaborProfit = t.LaborSale.Sub(t.LaborCost).Sub(t.LaborTax)
	t.TotalProfit = t.MaterialProfit.Add(t.LaborProfit)

	margin := decimal.Zero
	if sale := t.MaterialSale.Add(t.LaborSale); !sale.IsZero() {
		margin = t.TotalProfit.Div(sale).Mul(hundred)
	}

	return QuoteProfitability{
		QuoteID:  q.ID,
		Number:   q.Number,
		IssuedAt: q.IssuedAt,
		Totals:   t,
		Margin:   margin,
	}
}

func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred)
}

// AcceptedRevenue sums the sale totals of the accepted quotes, whether or
// not their costs are known.
func AcceptedRevenue(quotes []Quote) decimal.Decimal {
	total := decimal.Zero
	for _, q := range quotes {
		if q.Status == StatusAccepted {
			total = total.Add(q.SaleTotal())
		}
	}
	return total
}

// Snapshot bundles the read-only inputs of one analysis run.
type Snapshot struct {
	Quotes     []Quote
	ItemCosts  []ItemCostRecord
	LiveItems  []LiveItem
	Configs    []ConfigRecord
	LiveConfig Config
}

// CostBook indexes the snapshot's item cost inputs.
func (s Snapshot) CostBook() *CostBook {
	return NewCostBook(s.ItemCosts, s.LiveItems)
}

// ConfigBook indexes the snapshot's configuration inputs.
func (s Snapshot) ConfigBook() *ConfigBook {
	return NewConfigBook(s.Configs, s.LiveConfig)
}

// Analyze runs Analyze over the snapshot.
func (s Snapshot) Analyze() (Analysis, error) {
	return Analyze(s.Quotes, s.CostBook(), s.ConfigBook())
}
