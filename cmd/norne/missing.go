package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"norne/internal/domain"
)

var missingCmd = &cobra.Command{
	Use:   "missing",
	Short: "List trading days without a close per instrument",
	Args:  cobra.NoArgs,
	RunE:  runMissing,
}

func init() {
	missingCmd.Flags().StringSliceVar(&runInstruments, "instruments", nil, "instrument ids (default: universe.instruments)")

	rootCmd.AddCommand(missingCmd)
}

func runMissing(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.Instruments(selectInstruments(a.Config(), runInstruments))
	if err != nil {
		return err
	}
	missing, err := a.MissingDays(cmd.Context(), list)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, in := range list {
		days := missing[in.ID]
		fmt.Fprintf(out, "%s: %d missing\n", in.ID, len(days))
		for _, d := range days {
			fmt.Fprintf(out, "  %s\n", d.Format(domain.DateLayout))
		}
	}
	return nil
}
