// Command stockcast serves and runs inventory stock forecasts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stockcast",
		Short: "Monthly inventory stock forecasting",
		Long: `Stockcast forecasts monthly stock-on-hand per item with an ensemble of
SARIMA, ARIMA and Holt-Winters models, falling back to a naive trend when
no model fits.

Examples:
  stockcast serve --config configs/config.yaml
  stockcast forecast --file history.csv --item PARACETAMOL --months 6`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: ./configs/config.yaml or ./config.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(forecastCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
