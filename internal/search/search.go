// Package search evaluates a strategy over a list of parameter candidates
// and ranks them by how they did against a buy-and-hold benchmark.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Candidate is one parameter value to evaluate.
type Candidate struct {
	Value float64 `json:"value"`
	Label string  `json:"label,omitempty"`
}

// String returns the label, or the value when there is none.
func (c Candidate) String() string {
	if c.Label != "" {
		return c.Label
	}
	return fmt.Sprintf("%g", c.Value)
}

// Candidates builds unlabeled candidates from values.
func Candidates(values ...float64) []Candidate {
	out := make([]Candidate, len(values))
	for i, v := range values {
		out[i] = Candidate{Value: v}
	}
	return out
}

// Outcome is the final equity of one candidate run and of its benchmark.
type Outcome struct {
	FinalStrategy  float64
	FinalBenchmark float64
}

// Runner evaluates one candidate. Runs for different candidates must not
// share mutable state; Search may call Run concurrently.
type Runner interface {
	Run(ctx context.Context, c Candidate) (Outcome, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, c Candidate) (Outcome, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, c Candidate) (Outcome, error) { return f(ctx, c) }

// Row is one line of the ranked table.
type Row struct {
	Candidate      Candidate `json:"candidate"`
	FinalStrategy  float64   `json:"final_strategy"`
	FinalBenchmark float64   `json:"final_benchmark"`
	ReturnRatio    float64   `json:"return_ratio"`
}

// ReturnRatio is strategy / benchmark, or NaN when the benchmark ended at
// exactly zero.
func ReturnRatio(strategy, benchmark float64) float64 {
	if benchmark == 0 {
		return math.NaN()
	}
	return strategy / benchmark
}

type options struct {
	workers int
	log     *slog.Logger
}

// Option configures Search.
type Option func(*options)

// WithWorkers evaluates up to n candidates at once. Each candidate run stays
// sequential.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// Search runs every candidate and returns the rows ordered by descending
// return ratio. Ties and NaN ratios keep candidate order; NaN sorts last.
// Cancellation is checked before each candidate starts, never during one.
func Search(ctx context.Context, candidates []Candidate, r Runner, opts ...Option) ([]Row, error) {
	o := options{workers: 1, log: slog.Default().With("component", "search")}
	for _, opt := range opts {
		opt(&o)
	}

	rows := make([]Row, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := r.Run(gctx, c)
			if err != nil {
				return fmt.Errorf("candidate %s: %w", c, err)
			}
			rows[i] = Row{
				Candidate:      c,
				FinalStrategy:  out.FinalStrategy,
				FinalBenchmark: out.FinalBenchmark,
				ReturnRatio:    ReturnRatio(out.FinalStrategy, out.FinalBenchmark),
			}
			o.log.Debug("candidate done", "candidate", c.String(), "ratio", rows[i].ReturnRatio)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	Rank(rows)
	return rows, nil
}

// Rank sorts rows in place by descending return ratio, stable, NaN last.
func Rank(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].ReturnRatio, rows[j].ReturnRatio
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		return a > b
	})
}
