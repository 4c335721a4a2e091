package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"norne/internal/backtest"
	"norne/internal/domain"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func curve(vals ...float64) []domain.EquityPoint {
	out := make([]domain.EquityPoint, len(vals))
	for i, v := range vals {
		out[i] = domain.EquityPoint{Date: day(i), TotalValue: v}
	}
	return out
}

func obs(start int, vals ...float64) []domain.Observation {
	out := make([]domain.Observation, len(vals))
	for i, v := range vals {
		out[i] = domain.Observation{Date: day(start + i), Value: v}
	}
	return out
}

func TestEquityReturns(t *testing.T) {
	r := EquityReturns(curve(100, 110, 99))
	require.Len(t, r, 2)
	assert.Equal(t, day(1), r[0].Date)
	assert.InDelta(t, 0.10, r[0].Value, 1e-12)
	assert.InDelta(t, -0.10, r[1].Value, 1e-12)

	assert.Empty(t, EquityReturns(curve(100)))
}

func TestCumulative(t *testing.T) {
	logs := LogReturns(obs(0, 0.1, math.NaN(), -0.05))
	c := Cumulative(logs)
	require.Len(t, c, 3)
	assert.InDelta(t, 0.1, c[0].Value, 1e-12)
	assert.InDelta(t, 0.1, c[1].Value, 1e-12, "unknown return counts as zero")
	assert.InDelta(t, 1.1*0.95-1, c[2].Value, 1e-12)
}

func TestCAPM_RecoversLinearRelation(t *testing.T) {
	market := []float64{0.01, -0.02, 0.015, 0.003, -0.007, 0.02, -0.011, 0.004}
	rf := 0.0001
	lrf := math.Log1p(rf)

	// Build strategy simple returns whose excess log return is exactly
	// 0.0005 + 1.5 * market excess log return.
	strat := make([]float64, len(market))
	for i, m := range market {
		ex := math.Log1p(m) - lrf
		strat[i] = math.Expm1(0.0005 + 1.5*ex + lrf)
	}
	rfs := make([]float64, len(market))
	for i := range rfs {
		rfs[i] = rf
	}

	res, err := CAPM(obs(0, strat...), obs(0, market...), obs(0, rfs...))
	require.NoError(t, err)
	assert.Equal(t, len(market), res.N)
	assert.InDelta(t, 0.0005, res.Alpha, 1e-10)
	assert.InDelta(t, 1.5, res.Beta, 1e-10)
	assert.InDelta(t, 1.0, res.RSquared, 1e-9)
	assert.InDelta(t, 0.0005*252, res.AlphaAnnual, 1e-8)
	assert.Equal(t, day(0), res.Start)
	assert.Equal(t, day(len(market)-1), res.End)
	require.Len(t, res.CumulativeStrategy, len(market))

	want := 1.0
	for _, s := range strat {
		want *= 1 + s
	}
	assert.InDelta(t, want-1, res.CumulativeStrategy[len(market)-1].Value, 1e-12)
}

func TestCAPM_AlignsOnDates(t *testing.T) {
	strat := obs(0, 0.01, 0.02, 0.03, 0.04)
	market := obs(2, 0.01, 0.02, 0.03, 0.04)
	rf := obs(0, 0, 0, 0, 0, 0, 0)

	res, err := CAPM(strat, market, rf)
	require.NoError(t, err)
	assert.Equal(t, 2, res.N)
	assert.Equal(t, day(2), res.Start)
}

func TestCAPM_NoOverlap(t *testing.T) {
	_, err := CAPM(obs(0, 0.01, 0.02), obs(10, 0.01, 0.02), obs(0, 0, 0))
	assert.ErrorIs(t, err, ErrNoOverlap)

	_, err = CAPM(obs(0, 0.01, 0.02), obs(1, 0.01), obs(0, 0, 0))
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestSharpe(t *testing.T) {
	assert.Equal(t, 0.0, Sharpe([]float64{0.01}, 0))
	assert.Equal(t, 0.0, Sharpe([]float64{0.01, 0.01, 0.01}, 0), "no variance")

	daily := []float64{0.01, -0.005, 0.002, 0.007}
	mean := (0.01 - 0.005 + 0.002 + 0.007) / 4
	var ss float64
	for _, r := range daily {
		ss += (r - mean) * (r - mean)
	}
	std := math.Sqrt(ss / 3)
	assert.InDelta(t, mean/std*math.Sqrt(252), Sharpe(daily, 0), 1e-9)
}

func TestMaxDrawdown(t *testing.T) {
	assert.InDelta(t, 0.25, MaxDrawdown(curve(100, 120, 90, 110, 130, 100)), 1e-12)
	assert.Equal(t, 0.0, MaxDrawdown(curve(100, 101, 102)))
	assert.Equal(t, 0.0, MaxDrawdown(nil))
}

func TestRoundTrips(t *testing.T) {
	trades := []domain.Trade{
		{Date: day(0), Instrument: "A", Side: domain.SideBuy, Quantity: 10, Price: 100},
		{Date: day(1), Instrument: "B", Side: domain.SideBuy, Quantity: 5, Price: 20},
		{Date: day(2), Instrument: "A", Side: domain.SideSell, Quantity: 10, Price: 110},
		{Date: day(3), Instrument: "B", Side: domain.SideSell, Quantity: 5, Price: 18},
		{Date: day(4), Instrument: "C", Side: domain.SideSell, Quantity: 1, Price: 18},
	}
	assert.Equal(t, []float64{100, -10}, RoundTrips(trades))
}

func TestSummarize(t *testing.T) {
	res := &backtest.Result{
		InitialCapital: 1000,
		Equity:         curve(1000, 1100, 990, 1200),
		Trades: []domain.Trade{
			{Date: day(0), Instrument: "A", Side: domain.SideBuy, Quantity: 10, Price: 10},
			{Date: day(1), Instrument: "A", Side: domain.SideSell, Quantity: 10, Price: 13},
			{Date: day(2), Instrument: "A", Side: domain.SideBuy, Quantity: 10, Price: 12},
			{Date: day(3), Instrument: "A", Side: domain.SideSell, Quantity: 10, Price: 11},
			{Date: day(3), Instrument: "B", Side: domain.SideBuy, Quantity: 1, Price: 5},
		},
	}
	s := Summarize(res)
	assert.InDelta(t, 1200.0, s.FinalEquity, 1e-12)
	assert.InDelta(t, 0.2, s.TotalReturn, 1e-12)
	assert.InDelta(t, 0.1, s.MaxDrawdown, 1e-12)
	assert.Equal(t, 5, s.TotalTrades)
	assert.Equal(t, 2, s.RoundTrips)
	assert.InDelta(t, 0.5, s.WinRate, 1e-12)
	assert.InDelta(t, 3.0, s.ProfitFactor, 1e-12)
	assert.Greater(t, s.Sharpe, 0.0)

	onlyWins := &backtest.Result{
		InitialCapital: 100,
		Trades: []domain.Trade{
			{Date: day(0), Instrument: "A", Side: domain.SideBuy, Quantity: 1, Price: 10},
			{Date: day(1), Instrument: "A", Side: domain.SideSell, Quantity: 1, Price: 12},
		},
	}
	s = Summarize(onlyWins)
	assert.Equal(t, float64(MaxProfitFactor), s.ProfitFactor)
	assert.InDelta(t, 0.0, s.TotalReturn, 1e-12, "empty curve ends at initial capital")
}
