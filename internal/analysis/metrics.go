package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"norne/internal/backtest"
	"norne/internal/domain"
)

// TradingDaysPerYear annualizes daily statistics.
const TradingDaysPerYear = 252

// MaxProfitFactor is reported when there are winning round trips and no
// losing ones.
const MaxProfitFactor = 999

// Summary holds the headline metrics of one run.
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

// Summarize computes the summary of a run. Sharpe is annualized with a zero
// risk-free rate; use Sharpe directly for another rate.
func Summarize(res *backtest.Result) Summary {
	s := Summary{
		InitialCapital: res.InitialCapital,
		FinalEquity:    res.FinalEquity(),
		TotalTrades:    len(res.Trades),
	}
	if res.InitialCapital > 0 {
		s.TotalReturn = s.FinalEquity/res.InitialCapital - 1
	}
	s.Sharpe = Sharpe(values(EquityReturns(res.Equity)), 0)
	s.MaxDrawdown = MaxDrawdown(res.Equity)

	pnl := RoundTrips(res.Trades)
	s.RoundTrips = len(pnl)
	var wins int
	var gain, loss float64
	for _, p := range pnl {
		switch {
		case p > 0:
			wins++
			gain += p
		case p < 0:
			loss -= p
		}
	}
	if len(pnl) > 0 {
		s.WinRate = float64(wins) / float64(len(pnl))
	}
	switch {
	case loss > 0:
		s.ProfitFactor = gain / loss
	case gain > 0:
		s.ProfitFactor = MaxProfitFactor
	}
	return s
}

// Sharpe returns the annualized Sharpe ratio of daily returns against a
// daily risk-free rate. It is zero with fewer than two returns or no
// variance.
func Sharpe(daily []float64, rfDaily float64) float64 {
	excess := make([]float64, 0, len(daily))
	for _, r := range daily {
		if finite(r) {
			excess = append(excess, r-rfDaily)
		}
	}
	if len(excess) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(excess, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return mean / std * math.Sqrt(TradingDaysPerYear)
}

// MaxDrawdown returns the largest peak-to-trough fall of the curve as a
// positive fraction of the peak.
func MaxDrawdown(equity []domain.EquityPoint) float64 {
	peak, worst := 0.0, 0.0
	for _, p := range equity {
		if p.TotalValue > peak {
			peak = p.TotalValue
		}
		if peak > 0 {
			if dd := (peak - p.TotalValue) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// RoundTrips returns the realized profit of every sell, measured against
// the average cost of the position it closes, in trade order.
func RoundTrips(trades []domain.Trade) []float64 {
	type position struct {
		qty  int64
		cost float64
	}
	open := make(map[string]*position)
	var out []float64

	ordered := append([]domain.Trade(nil), trades...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	for _, t := range ordered {
		p := open[t.Instrument]
		if p == nil {
			p = &position{}
			open[t.Instrument] = p
		}
		switch t.Side {
		case domain.SideBuy:
			p.qty += t.Quantity
			p.cost += float64(t.Quantity) * t.Price
		case domain.SideSell:
			if p.qty <= 0 {
				continue
			}
			q := min(t.Quantity, p.qty)
			avg := p.cost / float64(p.qty)
			out = append(out, float64(q)*(t.Price-avg))
			p.cost -= avg * float64(q)
			p.qty -= q
		}
	}
	return out
}
