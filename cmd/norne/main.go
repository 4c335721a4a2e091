package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"norne/internal/app"
	"norne/internal/config"
	"norne/internal/util"
)

var (
	cfgPath  string
	logLevel string

	// Run overrides shared by backtest, search and capm.
	runInstruments []string
	runStart       string
	runEnd         string
	runCapital     float64
	runAllocation  float64
	runStrategy    string
	runWindows     []int
	runEntry       int
)

var rootCmd = &cobra.Command{
	Use:           "norne",
	Short:         "Backtest momentum strategies over daily price histories",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default $NORNE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cancel()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadApp loads the configuration and builds the App.
func loadApp() (*app.App, error) {
	cfg, err := config.Load(config.ResolvePath(cfgPath))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)
	return app.New(cfg, logger)
}

// addRunFlags registers the run override flags on cmd.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVar(&runInstruments, "instruments", nil, "instrument ids (default: universe.instruments)")
	f.StringVar(&runStart, "start", "", "first day YYYY-MM-DD")
	f.StringVar(&runEnd, "end", "", "last day YYYY-MM-DD")
	f.Float64Var(&runCapital, "capital", 0, "initial capital")
	f.Float64Var(&runAllocation, "allocation", 0, "fraction of total value per position")
	f.StringVar(&runStrategy, "strategy", "", "strategy type (default: strategy.type)")
	f.IntSliceVar(&runWindows, "windows", nil, "moving-average windows, shortest first")
	f.IntVar(&runEntry, "entry", 0, "entry score for the threshold strategy")
}

// runOverrides collects the run flags. Instruments named on the command
// line keep their configured file and exchange.
func runOverrides(cfg *config.Config) app.RunOverrides {
	o := app.RunOverrides{
		Instruments:    selectInstruments(cfg, runInstruments),
		Start:          runStart,
		End:            runEnd,
		InitialCapital: runCapital,
		Allocation:     runAllocation,
	}
	if runStrategy != "" || len(runWindows) > 0 || runEntry != 0 {
		sc := cfg.Strategy
		if runStrategy != "" && runStrategy != sc.Type {
			sc = config.StrategyConfig{Type: runStrategy}
		}
		p := sc.Params
		if len(runWindows) > 0 {
			p.Windows = runWindows
		}
		if runEntry != 0 {
			p.Entry = runEntry
		}
		o.Strategy = config.StrategyConfig{Type: sc.Type, Params: p}
	}
	return o
}

func selectInstruments(cfg *config.Config, ids []string) []config.InstrumentConfig {
	if len(ids) == 0 {
		return nil
	}
	known := make(map[string]config.InstrumentConfig, len(cfg.Universe.Instruments))
	for _, in := range cfg.Universe.Instruments {
		known[strings.ToUpper(in.ID)] = in
	}
	out := make([]config.InstrumentConfig, len(ids))
	for i, id := range ids {
		if in, ok := known[strings.ToUpper(id)]; ok {
			out[i] = in
		} else {
			out[i] = config.InstrumentConfig{ID: id}
		}
	}
	return out
}

// writeFile creates path and passes it to write. An empty path is a no-op.
func writeFile(path string, write func(io.Writer) error) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
