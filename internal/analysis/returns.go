// Package analysis computes performance statistics over equity curves: the
// summary metrics of a run and a CAPM regression against a market index.
package analysis

import (
	"math"

	"norne/internal/domain"
)

// EquityReturns returns the daily simple returns of an equity curve, dated
// by the later point. The first point has no return. A non-positive
// previous value yields no observation.
func EquityReturns(equity []domain.EquityPoint) []domain.Observation {
	if len(equity) < 2 {
		return nil
	}
	out := make([]domain.Observation, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].TotalValue
		if prev <= 0 {
			continue
		}
		out = append(out, domain.Observation{
			Date:  equity[i].Date,
			Value: equity[i].TotalValue/prev - 1,
		})
	}
	return out
}

// LogReturns converts simple returns to log returns, log(1+r).
func LogReturns(simple []domain.Observation) []domain.Observation {
	out := make([]domain.Observation, len(simple))
	for i, o := range simple {
		out[i] = domain.Observation{Date: o.Date, Value: math.Log1p(o.Value)}
	}
	return out
}

// Cumulative turns log returns into cumulative simple returns,
// exp(sum) - 1. Unknown returns count as zero.
func Cumulative(logReturns []domain.Observation) []domain.Observation {
	out := make([]domain.Observation, len(logReturns))
	sum := 0.0
	for i, o := range logReturns {
		if !math.IsNaN(o.Value) {
			sum += o.Value
		}
		out[i] = domain.Observation{Date: o.Date, Value: math.Expm1(sum)}
	}
	return out
}

func values(obs []domain.Observation) []float64 {
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = o.Value
	}
	return out
}
