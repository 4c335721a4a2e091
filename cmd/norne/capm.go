package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"norne/internal/report"
)

var capmCSV string

var capmCmd = &cobra.Command{
	Use:   "capm",
	Short: "Regress a backtest's returns on the market index",
	Long:  "Run a backtest, then fit excess log returns of its equity curve against market.index_file with market.yield_file as the risk-free rate.",
	Args:  cobra.NoArgs,
	RunE:  runCAPM,
}

func init() {
	addRunFlags(capmCmd)
	capmCmd.Flags().StringVar(&capmCSV, "csv", "", "write cumulative strategy, market and excess returns to this CSV file")

	rootCmd.AddCommand(capmCmd)
}

func runCAPM(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.Backtest(cmd.Context(), runOverrides(a.Config()))
	if err != nil {
		return err
	}
	res, err := a.CAPM(rep.Result)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "## CAPM %s\n\n", rep.Result.Strategy)
	if err := report.CAPMMarkdown(out, res); err != nil {
		return err
	}
	return writeFile(capmCSV, func(w io.Writer) error {
		return report.WriteCAPMCSV(w, res)
	})
}
