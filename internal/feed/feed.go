// Package feed supplies raw dated close prices from CSV exports, the Parquet
// bar store or the Alpaca market data API, and loads them into a calendar
// aligned series.Universe.
package feed

import (
	"context"
	"time"

	"norne/internal/domain"
)

// Supplier fetches the raw close history of one instrument. A zero start or
// end leaves that side of the range open. Implementations return a
// *series.DataError wrapping series.ErrNoData when nothing is found and
// series.ErrMissingField when no close field can be identified.
type Supplier interface {
	Fetch(ctx context.Context, instrument string, start, end time.Time) ([]domain.PricePoint, error)
}

// SupplierFunc adapts a function to Supplier.
type SupplierFunc func(ctx context.Context, instrument string, start, end time.Time) ([]domain.PricePoint, error)

// Fetch calls f.
func (f SupplierFunc) Fetch(ctx context.Context, instrument string, start, end time.Time) ([]domain.PricePoint, error) {
	return f(ctx, instrument, start, end)
}

func inRange(d, start, end time.Time) bool {
	if !start.IsZero() && d.Before(domain.DateOnly(start)) {
		return false
	}
	if !end.IsZero() && d.After(domain.DateOnly(end)) {
		return false
	}
	return true
}
