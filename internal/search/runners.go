package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"norne/internal/backtest"
	"norne/internal/indicator"
	"norne/internal/series"
	"norne/internal/strategy"
	"norne/internal/strategy/builtins"
)

// Searchable parameter names.
const (
	ParamEntry      = "entry"
	ParamExit       = "exit"
	ParamMinPeriods = "min_periods"
	ParamShort      = "short"
	ParamMid        = "mid"
	ParamLong       = "long"
)

// Apply returns a copy of p with the named parameter set to v. Every
// parameter is integral.
func Apply(p strategy.Params, name string, v float64) (strategy.Params, error) {
	if v != math.Trunc(v) || math.IsInf(v, 0) {
		return p, fmt.Errorf("parameter %s = %g: not an integer: %w", name, v, strategy.ErrInvalidParams)
	}
	n := int(v)

	p.Windows = append([]int(nil), p.Windows...)
	switch name {
	case ParamEntry:
		p.Entry = n
	case ParamExit:
		p.Exit = &n
	case ParamMinPeriods:
		p.MinPeriods = n
	case ParamShort, ParamMid, ParamLong:
		idx, err := windowIndex(name, len(p.Windows))
		if err != nil {
			return p, err
		}
		p.Windows[idx] = n
	default:
		return p, fmt.Errorf("unknown parameter %q: %w", name, strategy.ErrInvalidParams)
	}
	return p, nil
}

// windowIndex maps a window name onto Windows. Two windows are short and
// long; three are short, mid and long.
func windowIndex(name string, n int) (int, error) {
	switch {
	case n == 2 && name == ParamShort:
		return 0, nil
	case n == 2 && name == ParamLong:
		return 1, nil
	case n == 3:
		return map[string]int{ParamShort: 0, ParamMid: 1, ParamLong: 2}[name], nil
	}
	return 0, fmt.Errorf("parameter %s needs explicit windows, have %d: %w", name, n, strategy.ErrInvalidParams)
}

// Compile-time interface checks.
var (
	_ Runner = (*EngineRunner)(nil)
	_ Runner = (*VectorRunner)(nil)
)

// EngineRunner evaluates candidates with the event-driven engine. The
// benchmark is an equal-weight buy-and-hold run over the same universe and
// capital, computed once.
type EngineRunner struct {
	universe  *series.Universe
	cfg       backtest.Config
	registry  *strategy.Registry
	name      string
	base      strategy.Params
	parameter string
	log       *slog.Logger

	benchOnce sync.Once
	bench     float64
	benchErr  error
}

// NewEngineRunner creates an EngineRunner that builds strategy name from
// base with parameter replaced by each candidate value.
func NewEngineRunner(u *series.Universe, cfg backtest.Config, reg *strategy.Registry, name string, base strategy.Params, parameter string, log *slog.Logger) *EngineRunner {
	if log == nil {
		log = slog.Default().With("component", "search")
	}
	return &EngineRunner{
		universe:  u,
		cfg:       cfg,
		registry:  reg,
		name:      name,
		base:      base,
		parameter: parameter,
		log:       log,
	}
}

// Run implements Runner.
func (r *EngineRunner) Run(ctx context.Context, c Candidate) (Outcome, error) {
	p, err := Apply(r.base, r.parameter, c.Value)
	if err != nil {
		return Outcome{}, err
	}
	s, err := r.registry.New(r.name, p)
	if err != nil {
		return Outcome{}, err
	}
	e, err := backtest.NewEngine(r.universe, s, r.cfg, backtest.WithLogger(r.log))
	if err != nil {
		return Outcome{}, err
	}
	res, err := e.Run(ctx)
	if err != nil {
		return Outcome{}, err
	}

	bench, err := r.Benchmark(ctx)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{FinalStrategy: res.FinalEquity(), FinalBenchmark: bench}, nil
}

// Benchmark returns the final equity of the buy-and-hold run.
func (r *EngineRunner) Benchmark(ctx context.Context) (float64, error) {
	r.benchOnce.Do(func() {
		cfg := r.cfg
		cfg.Allocation = 1 / float64(max(r.universe.Len(), 1))
		e, err := backtest.NewEngine(r.universe, builtins.BuyAndHold{}, cfg, backtest.WithLogger(r.log))
		if err != nil {
			r.benchErr = fmt.Errorf("benchmark: %w", err)
			return
		}
		res, err := e.Run(ctx)
		if err != nil {
			r.benchErr = fmt.Errorf("benchmark: %w", err)
			return
		}
		r.bench = res.FinalEquity()
	})
	return r.bench, r.benchErr
}

// VectorRunner evaluates entry thresholds of the three-average alignment
// score on one instrument with the vectorized backtest. Exit is entry-1,
// so a position is held exactly while the score is at or above entry.
type VectorRunner struct {
	closes  []float64
	scores  []int
	rfDaily float64
}

// NewVectorRunner precomputes the alignment score of closes over windows
// (short, mid, long) with the given minimum periods.
func NewVectorRunner(closes []float64, windows [3]int, minPeriods int, rfDaily float64) *VectorRunner {
	cols := make([][]float64, 3)
	for i, w := range windows {
		cols[i] = indicator.Spec{Window: w, MinPeriods: minPeriods}.Compute(closes)
	}
	return &VectorRunner{
		closes:  closes,
		scores:  indicator.AlignmentScore(cols[0], cols[1], cols[2]),
		rfDaily: rfDaily,
	}
}

// Run implements Runner. The candidate value is the entry threshold.
func (r *VectorRunner) Run(_ context.Context, c Candidate) (Outcome, error) {
	k := int(c.Value)
	if float64(k) != c.Value {
		return Outcome{}, fmt.Errorf("entry %g: not an integer: %w", c.Value, strategy.ErrInvalidParams)
	}
	positions := builtins.Positions(builtins.Hysteresis(r.scores, k, k-1))
	res, err := backtest.RunPositions(r.closes, positions, r.rfDaily)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{FinalStrategy: res.FinalStrategy(), FinalBenchmark: res.FinalHold()}, nil
}
