package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var importAlpaca bool

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy instrument prices into the Parquet bar store",
	Long:  "Read the universe's CSV exports, or fetch daily bars from Alpaca with --alpaca, and write them to the Parquet store under storage.data_dir.",
	Args:  cobra.NoArgs,
	RunE:  runImport,
}

func init() {
	importCmd.Flags().StringSliceVar(&runInstruments, "instruments", nil, "instrument ids (default: universe.instruments)")
	importCmd.Flags().BoolVar(&importAlpaca, "alpaca", false, "fetch bars from Alpaca instead of CSV files")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.Import(cmd.Context(), selectInstruments(a.Config(), runInstruments), importAlpaca)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d bars into %s\n", n, a.Config().Storage.DataDir)
	return nil
}
