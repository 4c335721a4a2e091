package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"norne/internal/domain"
)

var (
	calendarExchange string
	calendarStart    string
	calendarEnd      string
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Manage the stored trading calendar",
}

var calendarSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch trading days from Alpaca into SQLite",
	Args:  cobra.NoArgs,
	RunE:  runCalendarSync,
}

func init() {
	f := calendarSyncCmd.Flags()
	f.StringVar(&calendarExchange, "exchange", "XNYS", "exchange to store the days under")
	f.StringVar(&calendarStart, "start", "", "first day YYYY-MM-DD (required)")
	f.StringVar(&calendarEnd, "end", "", "last day YYYY-MM-DD (required)")
	calendarSyncCmd.MarkFlagRequired("start")
	calendarSyncCmd.MarkFlagRequired("end")

	calendarCmd.AddCommand(calendarSyncCmd)
	rootCmd.AddCommand(calendarCmd)
}

func runCalendarSync(cmd *cobra.Command, _ []string) error {
	start, err := time.Parse(domain.DateLayout, calendarStart)
	if err != nil {
		return fmt.Errorf("invalid start date (expected YYYY-MM-DD): %w", err)
	}
	end, err := time.Parse(domain.DateLayout, calendarEnd)
	if err != nil {
		return fmt.Errorf("invalid end date (expected YYYY-MM-DD): %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("end date must not be before start date")
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ex := domain.Exchange(strings.ToUpper(calendarExchange))
	n, err := a.SyncCalendar(cmd.Context(), ex, start, end)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored %d %s trading days\n", n, ex)
	return nil
}
