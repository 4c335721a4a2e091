package norne

import (
	"time"

	"github.com/google/uuid"
)

// Instrument names one instrument of the universe. File and Exchange fall
// back to the server's configuration.
type Instrument struct {
	ID       string `json:"id"`
	File     string `json:"file,omitempty"`
	Exchange string `json:"exchange,omitempty"`
}

// Strategy selects a registered strategy and its parameters.
type Strategy struct {
	Type       string `json:"type,omitempty"`
	Windows    []int  `json:"windows,omitempty"`
	MinPeriods int    `json:"min_periods,omitempty"`
	Entry      int    `json:"entry,omitempty"`
	Exit       *int   `json:"exit,omitempty"`
}

// BacktestRequest overrides parts of the server's backtest configuration.
// Zero fields keep the configured values.
type BacktestRequest struct {
	Instruments    []Instrument `json:"instruments,omitempty"`
	Start          string       `json:"start,omitempty"`
	End            string       `json:"end,omitempty"`
	InitialCapital float64      `json:"initial_capital,omitempty"`
	Allocation     float64      `json:"allocation,omitempty"`
	Strategy       Strategy     `json:"strategy"`
}

// SearchRequest describes a parameter search.
type SearchRequest struct {
	BacktestRequest

	Parameter  string    `json:"parameter,omitempty"`
	Candidates []float64 `json:"candidates,omitempty"`
	Workers    int       `json:"workers,omitempty"`
	Vector     bool      `json:"vector,omitempty"`
}

// Trade is one fill of a backtest.
type Trade struct {
	Date       time.Time `json:"date"`
	Instrument string    `json:"instrument"`
	Side       string    `json:"side"`
	Quantity   int64     `json:"quantity"`
	Price      float64   `json:"price"`
}

// EquityPoint is one day of the equity curve.
type EquityPoint struct {
	Date          time.Time `json:"date"`
	TotalValue    float64   `json:"total_value"`
	Cash          float64   `json:"cash"`
	OpenPositions int       `json:"open_positions"`
}

// Result is a finished backtest run.
type Result struct {
	RunID          uuid.UUID     `json:"run_id"`
	Strategy       string        `json:"strategy"`
	Instruments    []string      `json:"instruments"`
	InitialCapital float64       `json:"initial_capital"`
	Allocation     float64       `json:"allocation"`
	Equity         []EquityPoint `json:"equity"`
	Trades         []Trade       `json:"trades"`
}

// Summary holds the headline metrics of a run.
type Summary struct {
	InitialCapital float64 `json:"initial_capital"`
	FinalEquity    float64 `json:"final_equity"`
	TotalReturn    float64 `json:"total_return"`
	Sharpe         float64 `json:"sharpe"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	TotalTrades    int     `json:"total_trades"`
	RoundTrips     int     `json:"round_trips"`
	WinRate        float64 `json:"win_rate"`
	ProfitFactor   float64 `json:"profit_factor"`
}

// BacktestResponse is the body of POST /api/backtest.
type BacktestResponse struct {
	Result  Result  `json:"result"`
	Summary Summary `json:"summary"`
}

// Candidate is one evaluated parameter value.
type Candidate struct {
	Value float64 `json:"value"`
	Label string  `json:"label,omitempty"`
}

// SearchRow is one ranked candidate. ReturnRatio is nil when the benchmark
// ended at zero.
type SearchRow struct {
	Candidate      Candidate `json:"candidate"`
	FinalStrategy  float64   `json:"final_strategy"`
	FinalBenchmark float64   `json:"final_benchmark"`
	ReturnRatio    *float64  `json:"return_ratio"`
}

// SearchTable is one ranked table. Instrument is set for vector searches.
type SearchTable struct {
	Instrument string      `json:"instrument,omitempty"`
	Parameter  string      `json:"parameter"`
	Benchmark  string      `json:"benchmark"`
	Rows       []SearchRow `json:"rows"`
}
