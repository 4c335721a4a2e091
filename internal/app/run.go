package app

import (
	"context"
	"fmt"
	"time"

	"norne/internal/analysis"
	"norne/internal/backtest"
	"norne/internal/calendar"
	"norne/internal/config"
	"norne/internal/domain"
	"norne/internal/feed"
	"norne/internal/search"
	"norne/internal/strategy/builtins"
)

// RunOverrides replaces parts of the configured backtest section. Zero
// values keep the configuration.
type RunOverrides struct {
	Instruments    []config.InstrumentConfig `json:"instruments,omitempty"`
	Start          string                    `json:"start,omitempty"`
	End            string                    `json:"end,omitempty"`
	InitialCapital float64                   `json:"initial_capital,omitempty"`
	Allocation     float64                   `json:"allocation,omitempty"`
	Strategy       config.StrategyConfig     `json:"strategy"`
}

// BacktestReport is a finished run with its summary metrics.
type BacktestReport struct {
	Result  *backtest.Result `json:"result"`
	Summary analysis.Summary `json:"summary"`
}

// SearchRequest describes a parameter search.
type SearchRequest struct {
	RunOverrides

	Parameter  string    `json:"parameter,omitempty"`
	Candidates []float64 `json:"candidates,omitempty"`
	Workers    int       `json:"workers,omitempty"`

	// Vector evaluates entry thresholds per instrument with the
	// vectorized backtest instead of the event-driven engine.
	Vector bool `json:"vector,omitempty"`
}

// SearchReport is one ranked table. Instrument is empty for engine
// searches over the whole universe.
type SearchReport struct {
	Instrument string       `json:"instrument,omitempty"`
	Parameter  string       `json:"parameter"`
	Benchmark  string       `json:"benchmark"`
	Rows       []search.Row `json:"rows"`
}

// engineConfig merges o over the configured backtest section.
func (a *App) engineConfig(o RunOverrides) (backtest.Config, error) {
	bc := *a.cfg
	if o.Start != "" {
		bc.Backtest.Start = o.Start
	}
	if o.End != "" {
		bc.Backtest.End = o.End
	}
	if o.InitialCapital != 0 {
		bc.Backtest.InitialCapital = o.InitialCapital
	}
	if o.Allocation != 0 {
		bc.Backtest.Allocation = o.Allocation
	}
	return bc.EngineConfig()
}

// Backtest loads the universe and runs the strategy over it.
func (a *App) Backtest(ctx context.Context, o RunOverrides) (*BacktestReport, error) {
	ec, err := a.engineConfig(o)
	if err != nil {
		return nil, err
	}
	s, err := a.Strategy(o.Strategy)
	if err != nil {
		return nil, err
	}
	u, err := a.LoadUniverse(ctx, o.Instruments)
	if err != nil {
		return nil, err
	}

	e, err := backtest.NewEngine(u, s, ec, backtest.WithLogger(a.log))
	if err != nil {
		return nil, err
	}
	res, err := e.Run(ctx)
	if err != nil {
		return nil, err
	}
	return &BacktestReport{Result: res, Summary: analysis.Summarize(res)}, nil
}

// Search runs a parameter search. Empty request fields fall back to the
// search section of the configuration.
func (a *App) Search(ctx context.Context, req SearchRequest) ([]SearchReport, error) {
	if req.Parameter == "" {
		req.Parameter = a.cfg.Search.Parameter
	}
	if len(req.Candidates) == 0 {
		req.Candidates = a.cfg.Search.Candidates
	}
	if req.Workers == 0 {
		req.Workers = a.cfg.Search.Workers
	}
	if len(req.Candidates) == 0 {
		return nil, fmt.Errorf("search %s: no candidates", req.Parameter)
	}

	ec, err := a.engineConfig(req.RunOverrides)
	if err != nil {
		return nil, err
	}
	u, err := a.LoadUniverse(ctx, req.Instruments)
	if err != nil {
		return nil, err
	}
	cands := search.Candidates(req.Candidates...)
	opts := []search.Option{search.WithWorkers(req.Workers), search.WithLogger(a.log)}

	if req.Vector {
		sc := req.Strategy
		if sc.Type == "" {
			sc = a.cfg.Strategy
		}
		windows := [3]int{builtins.DefaultShortWindow, builtins.DefaultMidWindow, builtins.DefaultLongWindow}
		switch len(sc.Windows) {
		case 1:
			windows = builtins.ScaledWindows(sc.Windows[0])
		case 3:
			copy(windows[:], sc.Windows)
		}
		minPeriods := sc.MinPeriods
		if minPeriods == 0 {
			minPeriods = 1
		}
		rf := backtest.RFDaily(a.cfg.Backtest.RFAnnual)

		var out []SearchReport
		for _, id := range u.Instruments() {
			s, _ := u.Get(id)
			closes := closesOf(s.Range(ec.Bounds()).Points())
			rows, err := search.Search(ctx, cands, search.NewVectorRunner(closes, windows, minPeriods, rf), opts...)
			if err != nil {
				return nil, fmt.Errorf("vector search %s: %w", id, err)
			}
			out = append(out, SearchReport{Instrument: id, Parameter: search.ParamEntry, Benchmark: "buy-and-hold", Rows: rows})
		}
		return out, nil
	}

	sc := req.Strategy
	if sc.Type == "" {
		sc = a.cfg.Strategy
	}
	runner := search.NewEngineRunner(u, ec, a.registry, sc.Type, sc.Params, req.Parameter, a.log)
	rows, err := search.Search(ctx, cands, runner, opts...)
	if err != nil {
		return nil, err
	}
	return []SearchReport{{Parameter: req.Parameter, Benchmark: "equal-weight buy-and-hold", Rows: rows}}, nil
}

// CAPM regresses a run's daily returns on the configured market index,
// using the configured yield as the risk-free rate.
func (a *App) CAPM(res *backtest.Result) (analysis.CAPMResult, error) {
	m := a.cfg.Market
	if m.IndexFile == "" || m.YieldFile == "" {
		return analysis.CAPMResult{}, fmt.Errorf("capm: market.index_file and market.yield_file are required")
	}
	market, err := feed.ReadChangePercentCSV(m.IndexFile)
	if err != nil {
		return analysis.CAPMResult{}, err
	}
	rf, err := feed.ReadYieldCSV(m.YieldFile)
	if err != nil {
		return analysis.CAPMResult{}, err
	}
	return analysis.CAPM(analysis.EquityReturns(res.Equity), market, rf)
}

// MissingDays reports, per instrument, the trading days without a known
// close between its first and last record.
func (a *App) MissingDays(ctx context.Context, requested []config.InstrumentConfig) (map[string][]time.Time, error) {
	list, err := a.Instruments(requested)
	if err != nil {
		return nil, err
	}
	cal, err := a.Calendar()
	if err != nil {
		return nil, err
	}
	sup := a.Supplier(list)

	out := make(map[string][]time.Time, len(list))
	for _, in := range list {
		raw, err := sup.Fetch(ctx, in.ID, time.Time{}, time.Time{})
		if err != nil {
			return nil, err
		}
		missing, err := calendar.MissingDays(ctx, cal, a.cfg.Exchange(in), raw)
		if err != nil {
			return nil, err
		}
		out[in.ID] = missing
	}
	return out, nil
}

// Import copies instrument prices into the Parquet bar store. CSV exports
// only carry closes, so imported CSV bars have open, high and low equal to
// the close; Alpaca bars are stored as fetched.
func (a *App) Import(ctx context.Context, requested []config.InstrumentConfig, fromAlpaca bool) (int, error) {
	list, err := a.Instruments(requested)
	if err != nil {
		return 0, err
	}
	bars := a.Parquet()
	csvs := a.CSVSupplier(list)
	alp := a.AlpacaSupplier()

	total := 0
	for _, in := range list {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		var out []domain.Bar
		if fromAlpaca {
			if out, err = alp.FetchBars(ctx, in.ID, time.Time{}, time.Time{}); err != nil {
				return total, err
			}
		} else {
			points, err := csvs.Fetch(ctx, in.ID, time.Time{}, time.Time{})
			if err != nil {
				return total, err
			}
			out = pointsToBars(in.ID, points)
		}
		if err := bars.WriteBars(ctx, a.cfg.Exchange(in), out); err != nil {
			return total, fmt.Errorf("writing %s: %w", in.ID, err)
		}
		a.log.Info("imported bars", "instrument", in.ID, "bars", len(out))
		total += len(out)
	}
	return total, nil
}

// SyncCalendar fetches trading days from Alpaca into the SQLite calendar.
func (a *App) SyncCalendar(ctx context.Context, exchange domain.Exchange, start, end time.Time) (int, error) {
	db, err := a.SQLite()
	if err != nil {
		return 0, err
	}
	days, err := a.AlpacaCalendar().TradingDays(ctx, exchange, start, end)
	if err != nil {
		return 0, err
	}
	if err := db.WriteTradingDays(ctx, exchange, days); err != nil {
		return 0, err
	}
	a.log.Info("calendar synced", "exchange", exchange, "days", len(days))
	return len(days), nil
}

func closesOf(points []domain.PricePoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Close
	}
	return out
}

func pointsToBars(symbol string, points []domain.PricePoint) []domain.Bar {
	out := make([]domain.Bar, 0, len(points))
	for _, p := range points {
		if !p.Known() {
			continue
		}
		out = append(out, domain.Bar{
			Symbol:    symbol,
			Timestamp: p.Date,
			Open:      p.Close,
			High:      p.Close,
			Low:       p.Close,
			Close:     p.Close,
		})
	}
	return out
}
