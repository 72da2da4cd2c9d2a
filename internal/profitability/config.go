package profitability

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/orcamentos/internal/temporal"
)

// Config is the global tax and fixed-cost configuration.
type Config struct {
	MonthlyFixedCost   decimal.Decimal `json:"monthlyFixedCost"`
	MaterialTaxPercent decimal.Decimal `json:"materialTaxPercent"`
	ServiceTaxPercent  decimal.Decimal `json:"serviceTaxPercent"`
}

// ConfigRecord is one entry of the append-only configuration history.
type ConfigRecord struct {
	EffectiveAt time.Time
	Config
}

// ConfigBook resolves the configuration in force at a given date.
type ConfigBook struct {
	history []temporal.Record[Config]
	live    Config
}

// NewConfigBook builds a ConfigBook over history with live as the fallback
// for an empty history.
func NewConfigBook(history []ConfigRecord, live Config) *ConfigBook {
	b := &ConfigBook{
		history: make([]temporal.Record[Config], 0, len(history)),
		live:    live,
	}
	for _, rec := range history {
		b.history = append(b.history, temporal.Record[Config]{EffectiveAt: rec.EffectiveAt, Value: rec.Config})
	}
	return b
}

// Resolve returns the configuration as of ref. Zero percentages or fixed
// costs in a resolved record are kept as they are.
func (b *ConfigBook) Resolve(ref time.Time) Config {
	if cfg, ok := temporal.Resolve(b.history, ref); ok {
		return cfg
	}
	return b.live
}

// ResolveForMonth returns the configuration governing the month
// [monthStart, monthEnd]. A change logged inside the month applies to the
// whole month; otherwise the month resolves as of monthEnd.
func (b *ConfigBook) ResolveForMonth(monthStart, monthEnd time.Time) Config {
	if cfg, ok := temporal.Latest(b.history, monthStart, monthEnd); ok {
		return cfg
	}
	return b.Resolve(monthEnd)
}

// ResolveConfig resolves the configuration at ref without building a reusable book.
func ResolveConfig(ref time.Time, history []ConfigRecord, live Config) Config {
	return NewConfigBook(history, live).Resolve(ref)
}

// ResolveConfigForMonth is the one-shot form of ConfigBook.ResolveForMonth.
func ResolveConfigForMonth(monthStart, monthEnd time.Time, history []ConfigRecord, live Config) Config {
	return NewConfigBook(history, live).ResolveForMonth(monthStart, monthEnd)
}
