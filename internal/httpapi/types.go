// Package httpapi serves backtests and parameter searches over HTTP as JSON.
package httpapi

import (
	"math"

	"norne/internal/app"
	"norne/internal/search"
)

// RowJSON is one ranked search row. ReturnRatio is null when the benchmark
// ended at zero.
type RowJSON struct {
	Candidate      search.Candidate `json:"candidate"`
	FinalStrategy  float64          `json:"final_strategy"`
	FinalBenchmark float64          `json:"final_benchmark"`
	ReturnRatio    *float64         `json:"return_ratio"`
}

// SearchJSON is one ranked search table.
type SearchJSON struct {
	Instrument string    `json:"instrument,omitempty"`
	Parameter  string    `json:"parameter"`
	Benchmark  string    `json:"benchmark"`
	Rows       []RowJSON `json:"rows"`
}

// StrategiesJSON lists the registered strategy types.
type StrategiesJSON struct {
	Strategies []string `json:"strategies"`
}

// ErrorJSON is the body of every non-2xx response.
type ErrorJSON struct {
	Error string `json:"error"`
}

func toSearchJSON(reps []app.SearchReport) []SearchJSON {
	out := make([]SearchJSON, len(reps))
	for i, rep := range reps {
		rows := make([]RowJSON, len(rep.Rows))
		for j, r := range rep.Rows {
			rows[j] = RowJSON{
				Candidate:      r.Candidate,
				FinalStrategy:  r.FinalStrategy,
				FinalBenchmark: r.FinalBenchmark,
				ReturnRatio:    finiteOrNil(r.ReturnRatio),
			}
		}
		out[i] = SearchJSON{
			Instrument: rep.Instrument,
			Parameter:  rep.Parameter,
			Benchmark:  rep.Benchmark,
			Rows:       rows,
		}
	}
	return out
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
