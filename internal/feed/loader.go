package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"norne/internal/calendar"
	"norne/internal/domain"
	"norne/internal/series"
)

// Instrument names one member of a universe and the exchange whose calendar
// its prices follow.
type Instrument struct {
	ID       string
	Exchange domain.Exchange
}

// Loader fetches, aligns and assembles instruments into a Universe.
type Loader struct {
	supplier Supplier
	cal      calendar.Calendar
	mode     calendar.FillMode
	log      *slog.Logger
}

// NewLoader creates a Loader. FillAlign needs a calendar; an unknown mode is
// rejected here, before anything is fetched.
func NewLoader(s Supplier, cal calendar.Calendar, mode calendar.FillMode) (*Loader, error) {
	if _, err := calendar.ParseFillMode(string(mode)); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = calendar.FillAlign
	}
	if mode == calendar.FillAlign && cal == nil {
		return nil, errors.New("fill mode align requires a calendar")
	}
	return &Loader{
		supplier: s,
		cal:      cal,
		mode:     mode,
		log:      slog.Default().With("component", "loader"),
	}, nil
}

// LoadSeries fetches and aligns one instrument.
func (l *Loader) LoadSeries(ctx context.Context, inst Instrument, start, end time.Time) (*series.Series, error) {
	raw, err := l.supplier.Fetch(ctx, inst.ID, start, end)
	if err != nil {
		return nil, err
	}
	aligned, err := calendar.Align(ctx, l.cal, inst.Exchange, raw, l.mode)
	if err != nil {
		return nil, fmt.Errorf("aligning %s: %w", inst.ID, err)
	}
	s, err := series.New(inst.ID, inst.Exchange, aligned)
	if err != nil {
		return nil, err
	}
	l.log.Debug("loaded series", "instrument", inst.ID, "rows", s.Len(), "raw", len(raw))
	return s, nil
}

// Load builds a Universe in the given instrument order. The first failing
// instrument aborts the load and its error is returned as is.
func (l *Loader) Load(ctx context.Context, instruments []Instrument, start, end time.Time) (*series.Universe, error) {
	list := make([]*series.Series, 0, len(instruments))
	for _, inst := range instruments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := l.LoadSeries(ctx, inst, start, end)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	u, err := series.NewUniverse(list...)
	if err != nil {
		return nil, err
	}
	l.log.Info("universe loaded", "instruments", u.Len(), "mode", l.mode)
	return u, nil
}
