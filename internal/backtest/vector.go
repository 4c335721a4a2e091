package backtest

import (
	"fmt"
	"math"

	"norne/internal/series"
)

// TradingDaysPerYear is used to convert annual rates to daily ones.
const TradingDaysPerYear = 252

// RFDaily converts an annual risk-free rate to the equivalent compounded
// daily rate, (1+annual)^(1/252) - 1.
func RFDaily(annual float64) float64 {
	return math.Pow(1+annual, 1.0/TradingDaysPerYear) - 1
}

// VectorResult holds the equity curves of a vectorized position backtest.
// Both curves compound from 1.0, so the first entry already includes day one.
type VectorResult struct {
	Returns        []float64 `json:"returns"`
	StrategyReturn []float64 `json:"strategy_returns"`
	StrategyEquity []float64 `json:"strategy_equity"`
	HoldEquity     []float64 `json:"hold_equity"`
}

// FinalStrategy returns the last strategy equity value.
func (r VectorResult) FinalStrategy() float64 { return last(r.StrategyEquity) }

// FinalHold returns the last buy-and-hold equity value.
func (r VectorResult) FinalHold() float64 { return last(r.HoldEquity) }

// RunPositions computes daily returns from closes and applies the previous
// day's position to each: pos*ret + (1-pos)*rfDaily. The first day's return
// is zero. An unknown close carries the last known price forward, so its
// return is zero and the next known close absorbs the move. An empty input
// returns an error wrapping series.ErrNoData.
func RunPositions(closes, positions []float64, rfDaily float64) (VectorResult, error) {
	if len(closes) != len(positions) {
		return VectorResult{}, fmt.Errorf("run positions: %d closes, %d positions", len(closes), len(positions))
	}
	if len(closes) == 0 {
		return VectorResult{}, series.NewDataError("run positions", "", series.ErrNoData)
	}

	n := len(closes)
	res := VectorResult{
		Returns:        make([]float64, n),
		StrategyReturn: make([]float64, n),
		StrategyEquity: make([]float64, n),
		HoldEquity:     make([]float64, n),
	}

	prevPrice := math.NaN()
	prevPos := 0.0
	strat, hold := 1.0, 1.0
	for i := 0; i < n; i++ {
		ret := 0.0
		if c := closes[i]; !math.IsNaN(c) {
			if !math.IsNaN(prevPrice) && prevPrice != 0 {
				ret = c/prevPrice - 1
			}
			prevPrice = c
		}

		sr := prevPos*ret + (1-prevPos)*rfDaily
		if math.IsNaN(sr) {
			sr = 0
		}
		strat *= 1 + sr
		hold *= 1 + ret

		res.Returns[i] = ret
		res.StrategyReturn[i] = sr
		res.StrategyEquity[i] = strat
		res.HoldEquity[i] = hold

		prevPos = positions[i]
		if math.IsNaN(prevPos) {
			prevPos = 0
		}
	}
	return res, nil
}

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return xs[len(xs)-1]
}
