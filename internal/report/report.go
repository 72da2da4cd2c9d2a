// Package report runs the profitability engine over a snapshot fetched from
// the store.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Simplici0/orcamentos/internal/profitability"
)

// Source provides the read-only inputs of a report.
type Source interface {
	QuotesIn(ctx context.Context, from, to time.Time, status profitability.Status) ([]profitability.Quote, error)
	ItemCostHistory(ctx context.Context) ([]profitability.ItemCostRecord, error)
	LiveItems(ctx context.Context) ([]profitability.LiveItem, error)
	ConfigHistory(ctx context.Context) ([]profitability.ConfigRecord, error)
	LiveConfig(ctx context.Context) (profitability.Config, error)
}

// Period is an inclusive range of calendar days.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CurrentMonth returns the calendar month containing now.
func CurrentMonth(now time.Time) Period {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return Period{From: start, To: start.AddDate(0, 1, -1)}
}

// bounds returns the first and last instant covered by p.
func (p Period) bounds() (time.Time, time.Time) {
	from := time.Date(p.From.Year(), p.From.Month(), p.From.Day(), 0, 0, 0, 0, p.From.Location())
	to := time.Date(p.To.Year(), p.To.Month(), p.To.Day(), 0, 0, 0, 0, p.To.Location()).
		AddDate(0, 0, 1).Add(-time.Nanosecond)
	return from, to
}

// Report is the profitability report of one period.
type Report struct {
	Period          Period                        `json:"period"`
	Analysis        profitability.Analysis        `json:"analysis"`
	AcceptedCount   int                           `json:"acceptedCount"`
	AcceptedRevenue decimal.Decimal               `json:"acceptedRevenue"`
	NetProfit       profitability.NetProfitResult `json:"netProfit"`
}

// Service builds reports.
type Service struct {
	src Source
	log *zap.Logger
}

// NewService returns a Service reading from src.
func NewService(src Source, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{src: src, log: log}
}

// Profitability builds the report for the accepted quotes of p.
func (s *Service) Profitability(ctx context.Context, p Period) (*Report, error) {
	from, to := p.bounds()
	if p.From.IsZero() || p.To.IsZero() || to.Before(from) {
		return nil, fmt.Errorf("from %s to %s: %w", p.From.Format(time.DateOnly), p.To.Format(time.DateOnly), profitability.ErrInvalidPeriod)
	}

	snap, err := s.snapshot(ctx, from, to)
	if err != nil {
		return nil, err
	}

	costs, configs := snap.CostBook(), snap.ConfigBook()
	analysis, err := profitability.Analyze(snap.Quotes, costs, configs)
	if err != nil {
		return nil, fmt.Errorf("analyze quotes: %w", err)
	}

	revenue := profitability.AcceptedRevenue(snap.Quotes)
	net, err := profitability.ComputeNetProfit(from, to, &analysis.Aggregate, revenue, configs)
	if err != nil {
		return nil, fmt.Errorf("compute net profit: %w", err)
	}

	s.log.Info("profitability report built",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("accepted", len(snap.Quotes)),
		zap.Int("included", analysis.Aggregate.IncludedCount),
		zap.Int("excluded", analysis.Aggregate.ExcludedCount),
		zap.Int("months", net.MonthCount),
		zap.Stringer("net_profit", net.NetProfit),
	)

	return &Report{
		Period:          p,
		Analysis:        analysis,
		AcceptedCount:   len(snap.Quotes),
		AcceptedRevenue: revenue,
		NetProfit:       net,
	}, nil
}

// snapshot fetches every input concurrently.
func (s *Service) snapshot(ctx context.Context, from, to time.Time) (profitability.Snapshot, error) {
	var snap profitability.Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		if snap.Quotes, err = s.src.QuotesIn(gctx, from, to, profitability.StatusAccepted); err != nil {
			return fmt.Errorf("load quotes: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if snap.ItemCosts, err = s.src.ItemCostHistory(gctx); err != nil {
			return fmt.Errorf("load item cost history: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if snap.LiveItems, err = s.src.LiveItems(gctx); err != nil {
			return fmt.Errorf("load live items: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if snap.Configs, err = s.src.ConfigHistory(gctx); err != nil {
			return fmt.Errorf("load config history: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if snap.LiveConfig, err = s.src.LiveConfig(gctx); err != nil {
			return fmt.Errorf("load live config: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return profitability.Snapshot{}, err
	}
	return snap, nil
}
