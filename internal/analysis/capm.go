package analysis

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"norne/internal/domain"
)

var (
	// ErrNoOverlap is returned when the strategy, market and risk-free
	// series share no date.
	ErrNoOverlap = errors.New("no overlapping dates")

	// ErrTooFewPoints is returned when fewer than two dates overlap.
	ErrTooFewPoints = errors.New("too few overlapping dates for regression")
)

// CAPMResult is an ordinary least squares fit of
// excess strategy return = Alpha + Beta * excess market return
// over daily log returns.
type CAPMResult struct {
	Alpha       float64   `json:"alpha"`
	Beta        float64   `json:"beta"`
	RSquared    float64   `json:"r_squared"`
	AlphaAnnual float64   `json:"alpha_annual"`
	N           int       `json:"n"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`

	// Cumulative simple returns over the regression dates.
	CumulativeStrategy []domain.Observation `json:"cumulative_strategy,omitempty"`
	CumulativeMarket   []domain.Observation `json:"cumulative_market,omitempty"`
	CumulativeExcess   []domain.Observation `json:"cumulative_excess,omitempty"`
}

// CAPM regresses the strategy's excess log returns on the market's. All
// three inputs are daily simple returns; rf is the daily risk-free rate.
// Only dates present in all three with finite values are used.
func CAPM(strategy, market, rf []domain.Observation) (CAPMResult, error) {
	mkt := index(market)
	free := index(rf)

	var dates []time.Time
	var xs, ys []float64
	for _, s := range strategy {
		d := domain.DateOnly(s.Date)
		m, ok := mkt[d]
		if !ok {
			continue
		}
		r, ok := free[d]
		if !ok {
			continue
		}
		ls, lm, lr := math.Log1p(s.Value), math.Log1p(m), math.Log1p(r)
		if !finite(ls) || !finite(lm) || !finite(lr) {
			continue
		}
		dates = append(dates, d)
		ys = append(ys, ls-lr)
		xs = append(xs, lm-lr)
	}

	switch {
	case len(xs) == 0:
		return CAPMResult{}, ErrNoOverlap
	case len(xs) < 2:
		return CAPMResult{}, fmt.Errorf("capm with %d points: %w", len(xs), ErrTooFewPoints)
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	res := CAPMResult{
		Alpha:       alpha,
		Beta:        beta,
		RSquared:    stat.RSquared(xs, ys, nil, alpha, beta),
		AlphaAnnual: alpha * TradingDaysPerYear,
		N:           len(xs),
		Start:       dates[0],
		End:         dates[len(dates)-1],
	}

	stratLog := make([]domain.Observation, len(dates))
	mktLog := make([]domain.Observation, len(dates))
	excess := make([]domain.Observation, len(dates))
	for i, d := range dates {
		stratLog[i] = domain.Observation{Date: d, Value: ys[i] + math.Log1p(free[d])}
		mktLog[i] = domain.Observation{Date: d, Value: xs[i] + math.Log1p(free[d])}
		excess[i] = domain.Observation{Date: d, Value: ys[i]}
	}
	res.CumulativeStrategy = Cumulative(stratLog)
	res.CumulativeMarket = Cumulative(mktLog)
	res.CumulativeExcess = Cumulative(excess)
	return res, nil
}

func index(obs []domain.Observation) map[time.Time]float64 {
	m := make(map[time.Time]float64, len(obs))
	for _, o := range obs {
		m[domain.DateOnly(o.Date)] = o.Value
	}
	return m
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
