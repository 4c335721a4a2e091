// Package series holds calendar-aligned price histories and the Universe of
// instruments a backtest runs over. Series are immutable once built.
package series

import (
	"math"
	"sort"
	"time"

	"norne/internal/domain"
	"norne/internal/indicator"
)

// Series is one instrument's ordered price history. Dates are strictly
// increasing; an unknown close on a trading day is NaN.
type Series struct {
	instrument string
	exchange   domain.Exchange
	dates      []time.Time
	closes     []float64
	columns    map[string][]float64
}

// New builds a Series from raw points. Points are sorted by date and
// duplicate dates keep the latest record in input order.
func New(instrument string, exchange domain.Exchange, points []domain.PricePoint) (*Series, error) {
	if len(points) == 0 {
		return nil, NewDataError("build series", instrument, ErrNoData)
	}

	latest := make(map[time.Time]float64, len(points))
	for _, p := range points {
		latest[domain.DateOnly(p.Date)] = p.Close
	}

	dates := make([]time.Time, 0, len(latest))
	for d := range latest {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	closes := make([]float64, len(dates))
	for i, d := range dates {
		closes[i] = latest[d]
	}

	return &Series{
		instrument: instrument,
		exchange:   exchange,
		dates:      dates,
		closes:     closes,
		columns:    make(map[string][]float64),
	}, nil
}

// Instrument returns the instrument id.
func (s *Series) Instrument() string { return s.instrument }

// Exchange returns the exchange whose calendar the series follows.
func (s *Series) Exchange() domain.Exchange { return s.exchange }

// Len returns the number of rows.
func (s *Series) Len() int { return len(s.dates) }

// Date returns the date of row i.
func (s *Series) Date(i int) time.Time { return s.dates[i] }

// Close returns the close of row i (NaN when unknown).
func (s *Series) Close(i int) float64 { return s.closes[i] }

// Column returns a derived indicator column.
func (s *Series) Column(name string) ([]float64, bool) {
	c, ok := s.columns[name]
	return c, ok
}

// Points returns a copy of the series as dated points.
func (s *Series) Points() []domain.PricePoint {
	out := make([]domain.PricePoint, len(s.dates))
	for i := range s.dates {
		out[i] = domain.PricePoint{Date: s.dates[i], Close: s.closes[i]}
	}
	return out
}

// IndexOf returns the row for date, or -1.
func (s *Series) IndexOf(date time.Time) int {
	d := domain.DateOnly(date)
	i := sort.Search(len(s.dates), func(i int) bool { return !s.dates[i].Before(d) })
	if i < len(s.dates) && s.dates[i].Equal(d) {
		return i
	}
	return -1
}

// Range returns a new Series restricted to [start, end], carrying the
// already computed columns.
func (s *Series) Range(start, end time.Time) *Series {
	start, end = domain.DateOnly(start), domain.DateOnly(end)
	lo := sort.Search(len(s.dates), func(i int) bool { return !s.dates[i].Before(start) })
	hi := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(end) })
	if hi < lo {
		hi = lo
	}

	out := &Series{
		instrument: s.instrument,
		exchange:   s.exchange,
		dates:      s.dates[lo:hi:hi],
		closes:     s.closes[lo:hi:hi],
		columns:    make(map[string][]float64, len(s.columns)),
	}
	for name, col := range s.columns {
		out.columns[name] = col[lo:hi:hi]
	}
	return out
}

// WithIndicators returns a copy of the series with the given indicator
// columns computed. Existing columns are reused, not recomputed.
func (s *Series) WithIndicators(specs ...indicator.Spec) *Series {
	out := &Series{
		instrument: s.instrument,
		exchange:   s.exchange,
		dates:      s.dates,
		closes:     s.closes,
		columns:    make(map[string][]float64, len(s.columns)+len(specs)),
	}
	for name, col := range s.columns {
		out.columns[name] = col
	}
	for _, spec := range specs {
		name := spec.Name()
		if _, ok := out.columns[name]; ok {
			continue
		}
		out.columns[name] = spec.Compute(s.closes)
	}
	return out
}

// Before returns a read-only view of rows [0, i). The view's slices are
// capped at i, so no later row can be reached through it.
func (s *Series) Before(i int) View {
	if i < 0 {
		i = 0
	}
	if i > len(s.dates) {
		i = len(s.dates)
	}
	cols := make(map[string][]float64, len(s.columns))
	for name, col := range s.columns {
		cols[name] = col[:i:i]
	}
	return View{
		dates:   s.dates[:i:i],
		closes:  s.closes[:i:i],
		columns: cols,
	}
}

// View is a truncated, read-only window onto a Series.
type View struct {
	dates   []time.Time
	closes  []float64
	columns map[string][]float64
}

// NewView builds a View directly from slices. It is intended for tests and
// callers that hold their own history.
func NewView(dates []time.Time, closes []float64, columns map[string][]float64) View {
	return View{dates: dates, closes: closes, columns: columns}
}

// Len returns the number of rows in the view.
func (v View) Len() int { return len(v.dates) }

// Date returns the date of row i.
func (v View) Date(i int) time.Time { return v.dates[i] }

// Close returns the close of row i.
func (v View) Close(i int) float64 { return v.closes[i] }

// Value returns column[i], or NaN when the column is absent.
func (v View) Value(column string, i int) float64 {
	c, ok := v.columns[column]
	if !ok || i < 0 || i >= len(c) {
		return math.NaN()
	}
	return c[i]
}

// Last returns the date of the last row and whether the view is non-empty.
func (v View) Last() (time.Time, bool) {
	if len(v.dates) == 0 {
		return time.Time{}, false
	}
	return v.dates[len(v.dates)-1], true
}
