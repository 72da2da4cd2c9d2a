// Package profitability computes historical gross and net profit for quotes
// using the item costs and tax configuration that were in force when each
// quote was issued.
//
// Everything in this package is a pure function of its inputs: callers fetch
// snapshots of quotes, history logs and live values, and the package never
// reads the clock.
package profitability

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/Simplici0/orcamentos/internal/temporal"
)

// ItemKey identifies a catalog item by its normalized description.
type ItemKey string

// NewItemKey trims, collapses inner whitespace and case-folds a description.
func NewItemKey(description string) ItemKey {
	return ItemKey(cases.Fold().String(strings.Join(strings.Fields(description), " ")))
}

// ItemCostRecord is one entry of the append-only item cost history.
type ItemCostRecord struct {
	Key              ItemKey
	EffectiveAt      time.Time
	MaterialUnitCost decimal.Decimal
	LaborUnitCost    decimal.Decimal
}

// LiveItem is the current catalog value for an item.
type LiveItem struct {
	Key              ItemKey
	Description      string
	MaterialUnitCost decimal.Decimal
	LaborUnitCost    decimal.Decimal
	SalePrice        decimal.Decimal
}

// ResolvedCost is the unit cost of one item at one reference date.
type ResolvedCost struct {
	MaterialUnitCost decimal.Decimal `json:"materialUnitCost"`
	LaborUnitCost    decimal.Decimal `json:"laborUnitCost"`
}

// IsKnown reports whether either unit cost is positive.
func (c ResolvedCost) IsKnown() bool {
	return c.MaterialUnitCost.IsPositive() || c.LaborUnitCost.IsPositive()
}

// CostBook indexes the item cost history and the live catalog by key.
type CostBook struct {
	history map[ItemKey][]temporal.Record[ResolvedCost]
	live    map[ItemKey]ResolvedCost
}

// NewCostBook builds a CostBook. History order is preserved per key so that
// records sharing an effective date resolve to the one listed last.
func NewCostBook(history []ItemCostRecord, live []LiveItem) *CostBook {
	b := &CostBook{
		history: make(map[ItemKey][]temporal.Record[ResolvedCost]),
		live:    make(map[ItemKey]ResolvedCost, len(live)),
	}
	for _, rec := range history {
		b.history[rec.Key] = append(b.history[rec.Key], temporal.Record[ResolvedCost]{
			EffectiveAt: rec.EffectiveAt,
			Value: ResolvedCost{
				MaterialUnitCost: rec.MaterialUnitCost,
				LaborUnitCost:    rec.LaborUnitCost,
			},
		})
	}
	for _, item := range live {
		b.live[item.Key] = ResolvedCost{
			MaterialUnitCost: item.MaterialUnitCost,
			LaborUnitCost:    item.LaborUnitCost,
		}
	}
	return b
}

// Resolve returns the unit costs of key as of ref.
//
// A historical record wins only when it carries a positive cost; otherwise the
// live catalog value is used, and an unknown item resolves to zero costs.
func (b *CostBook) Resolve(key ItemKey, ref time.Time) ResolvedCost {
	if cost, ok := temporal.Resolve(b.history[key], ref); ok && cost.IsKnown() {
		return cost
	}
	return b.live[key]
}

// HasResolvableCost reports whether Resolve yields a positive material or
// labor cost for key at ref.
func (b *CostBook) HasResolvableCost(key ItemKey, ref time.Time) bool {
	return b.Resolve(key, ref).IsKnown()
}

// ResolveItemCost resolves a single item without building a reusable book.
func ResolveItemCost(key ItemKey, ref time.Time, history []ItemCostRecord, live []LiveItem) ResolvedCost {
	return NewCostBook(history, live).Resolve(key, ref)
}
