package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"norne/internal/report"
)

var (
	backtestTail      int
	backtestEquityCSV string
	backtestTradesCSV string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the configured strategy over the universe",
	Long:  "Run a strategy against the universe's daily closes and print the summary, equity tail and trade log.",
	Args:  cobra.NoArgs,
	RunE:  runBacktest,
}

func init() {
	addRunFlags(backtestCmd)
	backtestCmd.Flags().IntVar(&backtestTail, "tail", 10, "equity rows to print")
	backtestCmd.Flags().StringVar(&backtestEquityCSV, "equity-csv", "", "write the equity curve to this CSV file")
	backtestCmd.Flags().StringVar(&backtestTradesCSV, "trades-csv", "", "write the trade log to this CSV file")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.Backtest(cmd.Context(), runOverrides(a.Config()))
	if err != nil {
		return err
	}
	res := rep.Result

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "## Backtest %s\n\n", res.Strategy)
	fmt.Fprintf(out, "Run %s over %d instruments, %d days.\n\n", res.RunID, len(res.Instruments), len(res.Equity))
	if err := report.SummaryMarkdown(out, rep.Summary); err != nil {
		return err
	}
	fmt.Fprintln(out)
	if err := report.EquityMarkdown(out, res.Equity, backtestTail); err != nil {
		return err
	}
	fmt.Fprintln(out)
	if err := report.TradesMarkdown(out, res.Trades); err != nil {
		return err
	}

	if err := writeFile(backtestEquityCSV, func(w io.Writer) error {
		return report.WriteEquityCSV(w, res.Equity)
	}); err != nil {
		return err
	}
	return writeFile(backtestTradesCSV, func(w io.Writer) error {
		return report.WriteTradesCSV(w, res.Trades)
	})
}
