package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/orcamentos/internal/report"
)

const moneyFormat = "#,###.##"

func money(d decimal.Decimal) string {
	return humanize.FormatFloat(moneyFormat, d.Round(2).InexactFloat64())
}

func percent(d decimal.Decimal) string {
	return humanize.FormatFloat(moneyFormat, d.Round(2).InexactFloat64()) + "%"
}

func printReport(out io.Writer, rep *report.Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(w, "Period %s to %s\n\n", rep.Period.From.Format(time.DateOnly), rep.Period.To.Format(time.DateOnly))

	if len(rep.Analysis.Quotes) > 0 {
		fmt.Fprintln(w, "Quote\tIssued\tSale\tCost\tTaxes\tProfit\tMargin\t")
		for _, q := range rep.Analysis.Quotes {
			sale := q.MaterialSale.Add(q.LaborSale)
			cost := q.MaterialCost.Add(q.LaborCost)
			taxes := q.MaterialTax.Add(q.LaborTax)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
				q.Number, q.IssuedAt.Format(time.DateOnly),
				money(sale), money(cost), money(taxes), money(q.TotalProfit), percent(q.Margin))
		}
		fmt.Fprintln(w)
	}

	agg := rep.Analysis.Aggregate
	fmt.Fprintf(w, "Accepted quotes\t%s\t\n", humanize.Comma(int64(rep.AcceptedCount)))
	fmt.Fprintf(w, "Analyzed\t%s\t\n", humanize.Comma(int64(agg.IncludedCount)))
	fmt.Fprintf(w, "Excluded (missing cost)\t%s\t\n", humanize.Comma(int64(agg.ExcludedCount)))
	fmt.Fprintf(w, "Accepted revenue\t%s\t\n", money(rep.AcceptedRevenue))
	if agg.IncludedCount > 0 {
		fmt.Fprintf(w, "Average margin\t%s\t\n", percent(agg.AverageMargin))
	}

	net := rep.NetProfit
	if net.GrossProfit.Valid {
		fmt.Fprintf(w, "Gross profit\t%s\t\n", money(net.GrossProfit.Decimal))
	}
	if net.ApproximateTaxes.Valid {
		fmt.Fprintf(w, "Approximate taxes\t%s\t\n", money(net.ApproximateTaxes.Decimal))
	}
	fmt.Fprintf(w, "Fixed costs (%s months)\t%s\t\n", humanize.Comma(int64(net.MonthCount)), money(net.TotalFixedCost))
	fmt.Fprintf(w, "Net profit\t%s\t\n", money(net.NetProfit))

	return w.Flush()
}
