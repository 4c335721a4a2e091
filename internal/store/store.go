// Package store defines storage interfaces for persisting and retrieving
// daily bars and exchange trading calendars.
package store

import (
	"context"
	"time"

	"norne/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars under the given exchange.
	WriteBars(ctx context.Context, exchange domain.Exchange, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and exchange within
	// [start, end], ordered by timestamp.
	ReadBars(ctx context.Context, symbol string, exchange domain.Exchange, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available for the exchange.
	ListSymbols(ctx context.Context, exchange domain.Exchange) ([]string, error)
}

// CalendarStore persists exchange trading days.
type CalendarStore interface {
	// WriteTradingDays records days as trading days of exchange.
	WriteTradingDays(ctx context.Context, exchange domain.Exchange, days []time.Time) error

	// TradingDays returns the stored trading days in [start, end].
	TradingDays(ctx context.Context, exchange domain.Exchange, start, end time.Time) ([]time.Time, error)
}
