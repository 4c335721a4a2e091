package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"norne/internal/domain"
	"norne/internal/util"
)

// Compile-time interface check.
var _ Calendar = (*AlpacaCalendar)(nil)

// AlpacaCalendar serves US exchange trading days from the Alpaca trading
// calendar API.
type AlpacaCalendar struct {
	client *alpaca.Client
	log    *slog.Logger
}

// NewAlpacaCalendar creates an AlpacaCalendar. baseURL is the trading API
// endpoint; empty uses the client default.
func NewAlpacaCalendar(apiKey, apiSecret, baseURL string) *AlpacaCalendar {
	return &AlpacaCalendar{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		log: slog.Default().With("component", "alpaca-calendar"),
	}
}

// TradingDays implements Calendar for US exchanges.
func (c *AlpacaCalendar) TradingDays(ctx context.Context, exchange domain.Exchange, start, end time.Time) ([]time.Time, error) {
	if !exchange.IsUS() {
		return nil, fmt.Errorf("alpaca calendar: %s: %w", exchange, ErrUnsupportedExchange)
	}

	var days []alpaca.CalendarDay
	err := util.Retry(ctx, 3, 500*time.Millisecond, func() error {
		var err error
		days, err = c.client.GetCalendar(alpaca.GetCalendarRequest{
			Start: domain.DateOnly(start),
			End:   domain.DateOnly(end),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetCalendar: %w", err)
	}

	out := make([]time.Time, 0, len(days))
	for _, day := range days {
		t, err := time.Parse(domain.DateLayout, day.Date)
		if err != nil {
			c.log.Warn("skipping calendar day", "date", day.Date, "error", err)
			continue
		}
		if t.Before(domain.DateOnly(start)) || t.After(domain.DateOnly(end)) {
			continue
		}
		out = append(out, t)
	}
	c.log.Debug("fetched trading days", "exchange", exchange, "days", len(out))
	return out, nil
}
