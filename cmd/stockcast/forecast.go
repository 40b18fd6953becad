package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sartorproj/stockcast/forecast"
	"github.com/sartorproj/stockcast/internal/logging"
	"github.com/sartorproj/stockcast/timeseries"
)

type forecastFlags struct {
	file    string
	item    string
	months  int
	workers int
	asJSON  bool
	verbose bool
}

func forecastCmd() *cobra.Command {
	var f forecastFlags
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast an item from a CSV of monthly history",
		Long: `Reads year,month,stockonhand (or date,stockonhand) rows from a CSV file,
optionally filtered by an itemcode column, and prints the forecast.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runForecast(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), f)
		},
	}

	cmd.Flags().StringVar(&f.file, "file", "", "CSV file with monthly history (required)")
	cmd.Flags().StringVar(&f.item, "item", "", "item code to select when the file has an itemcode column")
	cmd.Flags().IntVar(&f.months, "months", 3, "months to forecast")
	cmd.Flags().IntVar(&f.workers, "workers", 4, "concurrent model fits")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&f.verbose, "verbose", false, "log model fitting to stderr")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runForecast(ctx context.Context, stdout, stderr io.Writer, f forecastFlags) error {
	opts := timeseries.DefaultCSVOptions()
	opts.ItemFilter = f.item
	obs, err := timeseries.LoadCSV(f.file, opts)
	if err != nil {
		return fmt.Errorf("loading %s: %w", f.file, err)
	}

	fopts := forecast.DefaultOptions()
	fopts.Ensemble.Workers = f.workers
	if f.verbose {
		logger := logging.NewWithWriter(stderr, "debug", "development")
		fopts.Ensemble.Observer = logging.EventLogger(logrus.NewEntry(logger))
	}

	itemCode := f.item
	if itemCode == "" {
		itemCode = f.file
	}
	res, err := forecast.New(fopts).Forecast(ctx, itemCode, obs, f.months)
	if err != nil {
		return err
	}

	if f.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Map())
	}
	printForecast(stdout, res)
	return nil
}

func printForecast(w io.Writer, res *forecast.Result) {
	fmt.Fprintf(w, "Item:     %s (%d rows)\n", res.ItemCode, res.RowsUsed)
	fmt.Fprintf(w, "Model:    %s %s [%s]\n", res.Family, res.ModelOrder, res.State)
	if res.AccuracyMAPE != nil {
		fmt.Fprintf(w, "MAPE:     %.2f%%\n", *res.AccuracyMAPE)
	} else {
		fmt.Fprintln(w, "MAPE:     n/a")
	}
	p := res.Profile
	fmt.Fprintf(w, "Patterns: trend=%v (%s) volatility=%s seasonality=%v\n\n",
		p.HasTrend, p.TrendDirection, p.Volatility, p.HasSeasonality)

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Date", "Forecast", "Lower", "Upper"}),
	)
	for _, pr := range res.Predictions {
		table.Append([]string{
			pr.Date.Format("2006-01-02"),
			fmt.Sprintf("%.2f", pr.Forecast),
			fmt.Sprintf("%.2f", pr.Lower),
			fmt.Sprintf("%.2f", pr.Upper),
		})
	}
	table.Render()

	if len(res.Candidates) > 0 {
		fmt.Fprintln(w, "\nCandidates:")
		cand := tablewriter.NewTable(w,
			tablewriter.WithHeader([]string{"Family", "Order", "AIC", "Plausible"}),
		)
		for _, c := range res.Candidates {
			cand.Append([]string{c.Family, c.Order, fmt.Sprintf("%.2f", c.AIC), fmt.Sprintf("%v", c.Plausible)})
		}
		cand.Render()
	}
}
