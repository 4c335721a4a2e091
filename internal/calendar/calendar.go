// Package calendar provides exchange trading-day schedules and aligns raw
// dated records onto them.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"norne/internal/domain"
)

// Calendar returns the official trading days of an exchange.
type Calendar interface {
	// TradingDays returns the sorted trading days in [start, end], as
	// midnight UTC dates.
	TradingDays(ctx context.Context, exchange domain.Exchange, start, end time.Time) ([]time.Time, error)
}

var (
	// ErrUnknownFillMode is returned for a fill mode other than align or raw.
	ErrUnknownFillMode = errors.New("unknown fill mode")

	// ErrUnsupportedExchange is returned by calendars that do not know an
	// exchange.
	ErrUnsupportedExchange = errors.New("unsupported exchange")
)

// Compile-time interface check.
var _ Calendar = (*Weekday)(nil)

// Weekday is a Monday to Friday calendar minus a fixed holiday list. It
// ignores the exchange argument.
type Weekday struct {
	holidays map[time.Time]struct{}
}

// NewWeekday creates a Weekday calendar.
func NewWeekday(holidays ...time.Time) *Weekday {
	w := &Weekday{holidays: make(map[time.Time]struct{}, len(holidays))}
	for _, h := range holidays {
		w.holidays[domain.DateOnly(h)] = struct{}{}
	}
	return w
}

// TradingDays implements Calendar.
func (w *Weekday) TradingDays(_ context.Context, _ domain.Exchange, start, end time.Time) ([]time.Time, error) {
	var out []time.Time
	for d := domain.DateOnly(start); !d.After(domain.DateOnly(end)); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if _, ok := w.holidays[d]; ok {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// FillMode selects how Align treats dates missing from the raw records.
type FillMode string

const (
	// FillAlign reindexes onto trading days; gaps become unknown closes.
	FillAlign FillMode = "align"
	// FillRaw keeps the records as given, only sorted and deduplicated.
	FillRaw FillMode = "raw"
)

// ParseFillMode validates a fill mode name. The empty string selects
// FillAlign.
func ParseFillMode(s string) (FillMode, error) {
	switch FillMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", FillAlign:
		return FillAlign, nil
	case FillRaw:
		return FillRaw, nil
	default:
		return "", fmt.Errorf("fill mode %q: %w", s, ErrUnknownFillMode)
	}
}

// Dedupe sorts points by date and keeps the last record for each date.
func Dedupe(points []domain.PricePoint) []domain.PricePoint {
	latest := make(map[time.Time]float64, len(points))
	for _, p := range points {
		latest[domain.DateOnly(p.Date)] = p.Close
	}
	out := make([]domain.PricePoint, 0, len(latest))
	for d, c := range latest {
		out = append(out, domain.PricePoint{Date: d, Close: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Align deduplicates points and, in FillAlign mode, reindexes them onto the
// exchange's trading days between the first and last record. Records on
// non-trading days are dropped and trading days without a record get a NaN
// close. Prices are never interpolated.
func Align(ctx context.Context, cal Calendar, exchange domain.Exchange, points []domain.PricePoint, mode FillMode) ([]domain.PricePoint, error) {
	if mode != FillAlign && mode != FillRaw {
		return nil, fmt.Errorf("align %s: fill mode %q: %w", exchange, mode, ErrUnknownFillMode)
	}

	deduped := Dedupe(points)
	if mode == FillRaw || len(deduped) == 0 {
		return deduped, nil
	}

	first, last := deduped[0].Date, deduped[len(deduped)-1].Date
	days, err := cal.TradingDays(ctx, exchange, first, last)
	if err != nil {
		return nil, fmt.Errorf("align %s: trading days: %w", exchange, err)
	}

	byDate := make(map[time.Time]float64, len(deduped))
	for _, p := range deduped {
		byDate[p.Date] = p.Close
	}

	out := make([]domain.PricePoint, len(days))
	for i, d := range days {
		d = domain.DateOnly(d)
		c, ok := byDate[d]
		if !ok {
			c = math.NaN()
		}
		out[i] = domain.PricePoint{Date: d, Close: c}
	}
	return out, nil
}

// MissingDays returns the trading days between the first and last record
// that have no known close.
func MissingDays(ctx context.Context, cal Calendar, exchange domain.Exchange, points []domain.PricePoint) ([]time.Time, error) {
	aligned, err := Align(ctx, cal, exchange, points, FillAlign)
	if err != nil {
		return nil, err
	}
	var missing []time.Time
	for _, p := range aligned {
		if !p.Known() {
			missing = append(missing, p.Date)
		}
	}
	return missing, nil
}
