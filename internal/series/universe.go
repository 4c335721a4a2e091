package series

import (
	"sort"
	"time"

	"norne/internal/domain"
	"norne/internal/indicator"
)

// Universe is an ordered set of instruments, each owning one Series. The
// order is the caller's and is the order the engine processes instruments
// in on every day.
type Universe struct {
	series []*Series
	index  map[string]int
}

// NewUniverse builds a Universe. Instrument ids must be unique.
func NewUniverse(list ...*Series) (*Universe, error) {
	u := &Universe{
		series: make([]*Series, 0, len(list)),
		index:  make(map[string]int, len(list)),
	}
	for _, s := range list {
		if _, dup := u.index[s.Instrument()]; dup {
			return nil, NewDataError("build universe", s.Instrument(), ErrDuplicateInstrument)
		}
		u.index[s.Instrument()] = len(u.series)
		u.series = append(u.series, s)
	}
	return u, nil
}

// Len returns the number of instruments.
func (u *Universe) Len() int { return len(u.series) }

// At returns the i-th series in universe order.
func (u *Universe) At(i int) *Series { return u.series[i] }

// Get returns the series for an instrument id.
func (u *Universe) Get(instrument string) (*Series, bool) {
	i, ok := u.index[instrument]
	if !ok {
		return nil, false
	}
	return u.series[i], true
}

// Instruments returns the instrument ids in universe order.
func (u *Universe) Instruments() []string {
	out := make([]string, len(u.series))
	for i, s := range u.series {
		out[i] = s.Instrument()
	}
	return out
}

// Dates returns the sorted union of all instruments' dates in [start, end].
func (u *Universe) Dates(start, end time.Time) []time.Time {
	start, end = domain.DateOnly(start), domain.DateOnly(end)
	seen := make(map[time.Time]struct{})
	for _, s := range u.series {
		for _, d := range s.dates {
			if d.Before(start) || d.After(end) {
				continue
			}
			seen[d] = struct{}{}
		}
	}
	out := make([]time.Time, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Range returns a Universe whose series are restricted to [start, end].
// Indicator columns computed before the call keep their warm-up history.
func (u *Universe) Range(start, end time.Time) *Universe {
	out := &Universe{
		series: make([]*Series, len(u.series)),
		index:  u.index,
	}
	for i, s := range u.series {
		out.series[i] = s.Range(start, end)
	}
	return out
}

// WithIndicators returns a Universe whose series carry the given columns.
func (u *Universe) WithIndicators(specs ...indicator.Spec) *Universe {
	out := &Universe{
		series: make([]*Series, len(u.series)),
		index:  u.index,
	}
	for i, s := range u.series {
		out.series[i] = s.WithIndicators(specs...)
	}
	return out
}
