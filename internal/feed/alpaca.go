package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"norne/internal/domain"
	"norne/internal/series"
	"norne/internal/util"
)

// Compile-time interface check.
var _ Supplier = (*AlpacaSupplier)(nil)

// AlpacaSupplier fetches adjusted daily bars from the Alpaca market data
// API.
type AlpacaSupplier struct {
	client  *marketdata.Client
	feed    string
	limiter *util.RateLimiter
	log     *slog.Logger
}

// AlpacaOptions configures an AlpacaSupplier.
type AlpacaOptions struct {
	APIKey    string
	APISecret string
	DataURL   string // empty uses the client default
	Feed      string // "sip" or "iex"; empty is "iex"
	PerMinute int    // request budget; <= 0 disables limiting
}

// NewAlpacaSupplier creates an AlpacaSupplier.
func NewAlpacaSupplier(o AlpacaOptions) *AlpacaSupplier {
	opts := marketdata.ClientOpts{
		APIKey:    o.APIKey,
		APISecret: o.APISecret,
	}
	if o.DataURL != "" {
		opts.BaseURL = o.DataURL
	}
	feed := o.Feed
	if feed == "" {
		feed = "iex"
	}

	return &AlpacaSupplier{
		client:  marketdata.NewClient(opts),
		feed:    feed,
		limiter: util.NewBurstRateLimiter(o.PerMinute, 10),
		log:     slog.Default().With("component", "alpaca-supplier"),
	}
}

// Fetch implements Supplier.
func (s *AlpacaSupplier) Fetch(ctx context.Context, instrument string, start, end time.Time) ([]domain.PricePoint, error) {
	bars, err := s.FetchBars(ctx, instrument, start, end)
	if err != nil {
		return nil, err
	}
	return barsToPoints(bars), nil
}

// FetchBars returns split and dividend adjusted daily bars. It is also used
// to import bars into a BarStore.
func (s *AlpacaSupplier) FetchBars(ctx context.Context, instrument string, start, end time.Time) ([]domain.Bar, error) {
	if start.IsZero() {
		start = time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	req := marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.All,
		Start:      start,
		Feed:       s.feed,
	}
	if !end.IsZero() {
		req.End = end
	}

	symbol := strings.ToUpper(instrument)
	var bars []marketdata.Bar
	err := util.Retry(ctx, 3, time.Second, func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		var err error
		bars, err = s.client.GetBars(symbol, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, series.NewDataError("fetch alpaca", instrument, series.ErrNoData)
	}

	out := make([]domain.Bar, len(bars))
	for i, b := range bars {
		out[i] = domain.Bar{
			Symbol:    symbol,
			Timestamp: b.Timestamp,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    int64(b.Volume),
		}
	}
	s.log.Debug("fetched bars", "symbol", symbol, "bars", len(out))
	return out, nil
}
