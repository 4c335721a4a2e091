// Package backtest replays a Universe through a strategy one trading day at a
// time, keeping the books in a ledger, and provides a vectorized position
// backtest for quick parameter sweeps.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"norne/internal/domain"
	"norne/internal/ledger"
	"norne/internal/series"
	"norne/internal/strategy"
)

// runNamespace scopes deterministic run ids.
var runNamespace = uuid.MustParse("6f1c3a52-8d0e-4c4b-9a8e-2b7d1f0c5e91")

// Engine is a single-use event-driven backtester. Each Run starts from a
// fresh ledger, so the same engine may be run again with identical results.
type Engine struct {
	universe *series.Universe
	strategy strategy.Strategy
	cfg      Config
	log      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine validates cfg and prepares the universe: indicator columns the
// strategy needs are computed over the full history, then the series are
// cut to [Start, End] so averages are already warm on the first day.
func NewEngine(u *series.Universe, s strategy.Strategy, cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if u == nil || u.Len() == 0 {
		return nil, &ConfigError{Field: "universe", Value: 0, Reason: "no instruments"}
	}
	if s == nil {
		return nil, &ConfigError{Field: "strategy", Value: nil, Reason: "required"}
	}

	if p, ok := s.(strategy.Preparer); ok {
		u = u.WithIndicators(p.Indicators()...)
	}
	if !cfg.Start.IsZero() || !cfg.End.IsZero() {
		u = u.Range(cfg.Bounds())
	}

	e := &Engine{
		universe: u,
		strategy: s,
		cfg:      cfg,
		log:      slog.Default().With("component", "engine"),
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// RunID returns the deterministic id of this engine's runs. Equal inputs
// give equal ids.
func (e *Engine) RunID() uuid.UUID {
	key := fmt.Sprintf("%s|%s|%s|%s|%v|%v",
		Describe(e.strategy),
		strings.Join(e.universe.Instruments(), ","),
		e.cfg.Start.Format(domain.DateLayout),
		e.cfg.End.Format(domain.DateLayout),
		e.cfg.InitialCapital,
		e.cfg.Allocation,
	)
	return uuid.NewSHA1(runNamespace, []byte(key))
}

// Run walks the timeline. ctx is only checked before the walk starts; a run
// is never interrupted halfway.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r, ok := e.strategy.(strategy.Resetter); ok {
		r.Reset()
	}

	var (
		u       = e.universe
		n       = u.Len()
		dates   = u.Dates(e.cfg.Bounds())
		led     = ledger.New(e.cfg.InitialCapital)
		cursors = make([]int, n)
		rows    = make([]int, n)
		res     = &Result{
			RunID:          e.RunID(),
			Strategy:       Describe(e.strategy),
			Instruments:    u.Instruments(),
			InitialCapital: e.cfg.InitialCapital,
			Allocation:     e.cfg.Allocation,
			Equity:         make([]domain.EquityPoint, 0, len(dates)),
		}
	)

	e.log.Info("backtest started",
		"run", res.RunID,
		"strategy", res.Strategy,
		"instruments", n,
		"days", len(dates),
	)

	for _, day := range dates {
		// a. Snapshot the closes known today.
		prices := make(map[string]float64, n)
		for i := 0; i < n; i++ {
			s := u.At(i)
			for cursors[i] < s.Len() && s.Date(cursors[i]).Before(day) {
				cursors[i]++
			}
			rows[i] = -1
			if cursors[i] < s.Len() && s.Date(cursors[i]).Equal(day) {
				if c := s.Close(cursors[i]); validPrice(c) {
					rows[i] = cursors[i]
					prices[s.Instrument()] = c
				}
			}
		}

		// b. Mark before deciding.
		led.MarkToMarket(prices)

		// c. Decide and execute in universe order.
		for i := 0; i < n; i++ {
			if rows[i] < 0 {
				continue
			}
			s := u.At(i)
			id := s.Instrument()
			price := prices[id]

			trade, err := e.decide(led, id, day, price, s.Before(rows[i]))
			if err != nil {
				e.log.Error("ledger rejected engine order",
					"run", res.RunID,
					"date", day.Format(domain.DateLayout),
					"instrument", id,
					"error", err,
				)
				return nil, fmt.Errorf("backtest %s on %s: %w", id, day.Format(domain.DateLayout), err)
			}
			if trade != nil {
				res.Trades = append(res.Trades, *trade)
			}
		}

		// d. Mark again so today's fills show in today's equity.
		total := led.MarkToMarket(prices)

		// e. Record.
		res.Equity = append(res.Equity, domain.EquityPoint{
			Date:          day,
			TotalValue:    total.InexactFloat64(),
			Cash:          led.Cash().InexactFloat64(),
			OpenPositions: led.OpenPositions(),
		})
	}

	res.Final = led.Snapshot()
	e.log.Info("backtest finished",
		"run", res.RunID,
		"trades", len(res.Trades),
		"final", res.FinalEquity(),
	)
	return res, nil
}

// decide turns one signal into at most one trade. Signals that cannot be
// acted on (repeat buy, nothing to sell, zero size) return nil, nil.
func (e *Engine) decide(led *ledger.Ledger, id string, day time.Time, price float64, history series.View) (*domain.Trade, error) {
	switch e.strategy.GenerateSignal(id, history) {
	case domain.SignalBuy:
		if led.Holding(id) > 0 {
			return nil, nil
		}
		px := decimal.NewFromFloat(price)
		qty := SizeOrder(led.TotalValue(), led.Cash(), px, e.cfg.Allocation)
		if qty <= 0 {
			return nil, nil
		}
		if err := led.Buy(id, qty, price); err != nil {
			return nil, err
		}
		return &domain.Trade{Date: day, Instrument: id, Side: domain.SideBuy, Quantity: qty, Price: price}, nil

	case domain.SignalSell:
		held := led.Holding(id)
		if held <= 0 {
			return nil, nil
		}
		if err := led.Sell(id, held, price); err != nil {
			return nil, err
		}
		return &domain.Trade{Date: day, Instrument: id, Side: domain.SideSell, Quantity: held, Price: price}, nil
	}
	return nil, nil
}

func validPrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0
}

// Describe returns a strategy's String form when it has one, else its Name.
func Describe(s strategy.Strategy) string {
	if st, ok := s.(fmt.Stringer); ok {
		return st.String()
	}
	return s.Name()
}
