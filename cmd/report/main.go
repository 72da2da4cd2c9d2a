// Command report prints profitability reports straight from the database.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Simplici0/orcamentos/internal/config"
	"github.com/Simplici0/orcamentos/internal/db"
	"github.com/Simplici0/orcamentos/internal/logger"
	"github.com/Simplici0/orcamentos/internal/report"
	"github.com/Simplici0/orcamentos/internal/store"
)

type profitabilityFlags struct {
	from       string
	to         string
	configPath string
	dbPath     string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "report",
		Short:         "Quote profitability reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(newProfitabilityCmd(time.Now))
	return root
}

func newProfitabilityCmd(now func() time.Time) *cobra.Command {
	var flags profitabilityFlags

	cmd := &cobra.Command{
		Use:   "profitability",
		Short: "Profit of the accepted quotes of a period, net of fixed costs",
		Long: `Analyzes the accepted quotes of a period with the item costs and tax
rates in force when each quote was issued, then subtracts the monthly fixed
cost of every calendar month the period touches.

Without --from and --to the current month is reported.`,
		Example: "  report profitability --from 2024-01-01 --to 2024-03-31",
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := flags.period(now())
			if err != nil {
				return err
			}
			return runProfitability(cmd.Context(), cmd.OutOrStdout(), flags, period)
		},
	}

	cmd.Flags().StringVar(&flags.from, "from", "", "first day of the period (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.to, "to", "", "last day of the period (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.configPath, "config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	cmd.Flags().StringVar(&flags.dbPath, "db", "", "SQLite database path (overrides config)")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "log at debug level")
	cmd.MarkFlagsRequiredTogether("from", "to")
	return cmd
}

func (f profitabilityFlags) period(now time.Time) (report.Period, error) {
	if f.from == "" && f.to == "" {
		return report.CurrentMonth(now), nil
	}

	from, err := time.ParseInLocation(time.DateOnly, f.from, time.UTC)
	if err != nil {
		return report.Period{}, fmt.Errorf("parse --from: %w", err)
	}
	to, err := time.ParseInLocation(time.DateOnly, f.to, time.UTC)
	if err != nil {
		return report.Period{}, fmt.Errorf("parse --to: %w", err)
	}
	return report.Period{From: from, To: to}, nil
}

func runProfitability(ctx context.Context, out io.Writer, flags profitabilityFlags, period report.Period) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.dbPath != "" {
		cfg.DBPath = flags.dbPath
	}

	level := "warn"
	if flags.verbose {
		level = "debug"
	}
	zl, err := logger.New(logger.Config{Level: level, OutputPaths: []string{"stderr"}})
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	svc := report.NewService(store.New(database), logger.Component(zl, "report"))
	rep, err := svc.Profitability(ctx, period)
	if err != nil {
		return err
	}
	zl.Debug("report ready", zap.String("db", cfg.DBPath))

	return printReport(out, rep)
}
