// Package app wires a Config into the backtester: it opens stores, picks the
// trading calendar and price supplier, loads universes and runs backtests
// and searches for the CLI and the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"norne/internal/calendar"
	"norne/internal/config"
	"norne/internal/domain"
	"norne/internal/feed"
	"norne/internal/series"
	"norne/internal/store"
	"norne/internal/strategy"
	"norne/internal/strategy/builtins"
)

// ErrEmptyUniverse is returned when neither the request nor the
// configuration names any instrument.
var ErrEmptyUniverse = errors.New("no instruments configured")

// App holds the long-lived components built from a Config.
type App struct {
	cfg      *config.Config
	registry *strategy.Registry
	log      *slog.Logger

	mu     sync.Mutex
	sqlite *store.SQLiteStore
}

// New validates cfg and creates an App. Stores are opened on first use.
func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &App{
		cfg:      cfg,
		registry: builtins.NewRegistry(),
		log:      log.With("component", "app"),
	}, nil
}

// Config returns the configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Registry returns the strategy registry.
func (a *App) Registry() *strategy.Registry { return a.registry }

// Close releases opened stores.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sqlite == nil {
		return nil
	}
	err := a.sqlite.Close()
	a.sqlite = nil
	return err
}

// SQLite opens the calendar database once.
func (a *App) SQLite() (*store.SQLiteStore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sqlite != nil {
		return a.sqlite, nil
	}
	s, err := store.NewSQLiteStore(a.cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	a.sqlite = s
	return s, nil
}

// Parquet returns the bar store under the data dir.
func (a *App) Parquet() *store.ParquetStore {
	return store.NewParquetStore(a.cfg.Storage.DataDir)
}

// Calendar returns the configured trading calendar.
func (a *App) Calendar() (calendar.Calendar, error) {
	switch a.cfg.Backtest.Calendar {
	case config.CalendarSQLite:
		return a.SQLite()
	case config.CalendarAlpaca:
		return a.AlpacaCalendar(), nil
	default:
		return calendar.NewWeekday(), nil
	}
}

// AlpacaCalendar returns a calendar backed by the Alpaca trading API.
func (a *App) AlpacaCalendar() *calendar.AlpacaCalendar {
	c := a.cfg.Alpaca
	return calendar.NewAlpacaCalendar(c.APIKey, c.APISecret, c.BaseURL)
}

// AlpacaSupplier returns a supplier backed by the Alpaca market data API.
func (a *App) AlpacaSupplier() *feed.AlpacaSupplier {
	c := a.cfg.Alpaca
	return feed.NewAlpacaSupplier(feed.AlpacaOptions{
		APIKey:    c.APIKey,
		APISecret: c.APISecret,
		DataURL:   c.DataURL,
		Feed:      c.Feed,
		PerMinute: c.RateLimitPerMin,
	})
}

// CSVSupplier returns a supplier over the universe dir. Relative instrument
// files are resolved against it.
func (a *App) CSVSupplier(instruments []config.InstrumentConfig) *feed.CSVSupplier {
	dir := a.cfg.Universe.Dir
	files := make(map[string]string)
	for _, in := range instruments {
		if in.File == "" {
			continue
		}
		path := in.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		files[in.ID] = path
	}
	return feed.NewCSVSupplier(dir, files)
}

// Supplier returns the configured price supplier for instruments.
func (a *App) Supplier(instruments []config.InstrumentConfig) feed.Supplier {
	switch a.cfg.Universe.Source {
	case config.SourceParquet:
		bars := a.Parquet()
		exchanges := make(map[string]domain.Exchange, len(instruments))
		for _, in := range instruments {
			exchanges[in.ID] = a.cfg.Exchange(in)
		}
		return feed.SupplierFunc(func(ctx context.Context, id string, start, end time.Time) ([]domain.PricePoint, error) {
			return feed.NewStoreSupplier(bars, exchanges[id]).Fetch(ctx, id, start, end)
		})
	case config.SourceAlpaca:
		return a.AlpacaSupplier()
	default:
		return a.CSVSupplier(instruments)
	}
}

// Instruments returns the request's instruments, or the configured ones
// when the request names none.
func (a *App) Instruments(requested []config.InstrumentConfig) ([]config.InstrumentConfig, error) {
	list := requested
	if len(list) == 0 {
		list = a.cfg.Universe.Instruments
	}
	if len(list) == 0 {
		return nil, ErrEmptyUniverse
	}
	return list, nil
}

// LoadUniverse fetches and aligns instruments over their full history.
// Engines restrict the timeline themselves so that indicators keep their
// warm-up rows.
func (a *App) LoadUniverse(ctx context.Context, requested []config.InstrumentConfig) (*series.Universe, error) {
	list, err := a.Instruments(requested)
	if err != nil {
		return nil, err
	}
	mode, err := calendar.ParseFillMode(a.cfg.Backtest.FillMode)
	if err != nil {
		return nil, err
	}
	var cal calendar.Calendar
	if mode == calendar.FillAlign {
		if cal, err = a.Calendar(); err != nil {
			return nil, err
		}
	}
	loader, err := feed.NewLoader(a.Supplier(list), cal, mode)
	if err != nil {
		return nil, err
	}

	insts := make([]feed.Instrument, len(list))
	for i, in := range list {
		insts[i] = feed.Instrument{ID: in.ID, Exchange: a.cfg.Exchange(in)}
	}
	return loader.Load(ctx, insts, time.Time{}, time.Time{})
}

// Strategy builds a strategy from sc, falling back to the configured type
// when sc names none.
func (a *App) Strategy(sc config.StrategyConfig) (strategy.Strategy, error) {
	if sc.Type == "" {
		sc = a.cfg.Strategy
	}
	return a.registry.New(sc.Type, sc.Params)
}
