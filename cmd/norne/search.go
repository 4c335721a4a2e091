package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"norne/internal/app"
	"norne/internal/report"
)

var (
	searchParameter  string
	searchCandidates []float64
	searchWorkers    int
	searchVector     bool
	searchCSV        string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Rank parameter candidates against buy-and-hold",
	Long: `Evaluate the strategy once per candidate value of one parameter and rank
the candidates by final equity over the benchmark's.

The default mode runs the event-driven engine over the whole universe and
compares with an equal-weight buy-and-hold portfolio. --vector evaluates
entry thresholds of the threshold strategy per instrument instead, against
holding that instrument.`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func init() {
	addRunFlags(searchCmd)
	f := searchCmd.Flags()
	f.StringVar(&searchParameter, "parameter", "", "parameter to vary: entry, exit, min_periods, short, mid, long")
	f.Float64SliceVar(&searchCandidates, "candidates", nil, "candidate values (default: search.candidates)")
	f.IntVar(&searchWorkers, "workers", 0, "parallel evaluations (default: search.workers)")
	f.BoolVar(&searchVector, "vector", false, "per-instrument vectorized threshold search")
	f.StringVar(&searchCSV, "csv", "", "write ranked tables to this CSV file, one per instrument in vector mode")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	reps, err := a.Search(cmd.Context(), app.SearchRequest{
		RunOverrides: runOverrides(a.Config()),
		Parameter:    searchParameter,
		Candidates:   searchCandidates,
		Workers:      searchWorkers,
		Vector:       searchVector,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, rep := range reps {
		if i > 0 {
			fmt.Fprintln(out)
		}
		title := rep.Parameter
		if rep.Instrument != "" {
			title = rep.Instrument + " " + title
		}
		fmt.Fprintf(out, "## Search %s vs %s\n\n", title, rep.Benchmark)
		if err := report.SearchMarkdown(out, rep.Parameter, rep.Rows); err != nil {
			return err
		}

		path := searchCSV
		if path != "" && rep.Instrument != "" {
			path = suffixPath(path, rep.Instrument)
		}
		if err := writeFile(path, func(w io.Writer) error {
			return report.WriteSearchCSV(w, rep.Parameter, rep.Rows)
		}); err != nil {
			return err
		}
	}
	return nil
}

// suffixPath inserts "_suffix" before the extension of path.
func suffixPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + suffix + ext
}
