package feed

import (
	"context"
	"fmt"
	"math"
	"time"

	"norne/internal/domain"
	"norne/internal/series"
	"norne/internal/store"
)

// Compile-time interface check.
var _ Supplier = (*StoreSupplier)(nil)

// StoreSupplier reads closes from a BarStore for one exchange.
type StoreSupplier struct {
	store    store.BarStore
	exchange domain.Exchange
}

// NewStoreSupplier creates a StoreSupplier.
func NewStoreSupplier(s store.BarStore, exchange domain.Exchange) *StoreSupplier {
	return &StoreSupplier{store: s, exchange: exchange}
}

// Fetch implements Supplier.
func (s *StoreSupplier) Fetch(ctx context.Context, instrument string, start, end time.Time) ([]domain.PricePoint, error) {
	if start.IsZero() {
		start = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if end.IsZero() {
		end = domain.DateOnly(time.Now())
	}

	bars, err := s.store.ReadBars(ctx, instrument, s.exchange, start, end)
	if err != nil {
		return nil, fmt.Errorf("reading %s bars: %w", instrument, err)
	}
	if len(bars) == 0 {
		return nil, series.NewDataError("fetch store", instrument, series.ErrNoData)
	}
	return barsToPoints(bars), nil
}

func barsToPoints(bars []domain.Bar) []domain.PricePoint {
	out := make([]domain.PricePoint, len(bars))
	for i, b := range bars {
		c := b.Close
		if c <= 0 {
			c = math.NaN()
		}
		out[i] = domain.PricePoint{Date: domain.DateOnly(b.Timestamp), Close: c}
	}
	return out
}
