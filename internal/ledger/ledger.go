// Package ledger keeps the cash and holdings of a simulated portfolio. It is
// the accounting core of the backtester: buys never overdraw cash, sells
// never take a holding below zero, and total value is recomputed only by
// MarkToMarket.
//
// Money is held as decimal so that summing holdings is exact and does not
// depend on iteration order.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Ledger errors. Within the backtest engine these indicate a sizing bug, not
// an expected market condition.
var (
	ErrInsufficientCash     = errors.New("insufficient cash")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidPrice         = errors.New("price must be positive and finite")
)

// Ledger is a single-threaded cash + holdings account.
type Ledger struct {
	initial  decimal.Decimal
	cash     decimal.Decimal
	holdings map[string]int64
	marks    map[string]decimal.Decimal
	total    decimal.Decimal
}

// New creates a Ledger holding only the initial cash endowment.
func New(initialCash float64) *Ledger {
	c := decimal.NewFromFloat(initialCash)
	return &Ledger{
		initial:  c,
		cash:     c,
		holdings: make(map[string]int64),
		marks:    make(map[string]decimal.Decimal),
		total:    c,
	}
}

// Buy adds quantity units of instrument at price, paying from cash. The full
// cost must be covered; there are no partial fills.
func (l *Ledger) Buy(instrument string, quantity int64, price float64) error {
	if quantity <= 0 {
		return fmt.Errorf("buy %d %s: %w", quantity, instrument, ErrInvalidQuantity)
	}
	px, err := toPrice(price)
	if err != nil {
		return fmt.Errorf("buy %d %s: %w", quantity, instrument, err)
	}

	cost := px.Mul(decimal.NewFromInt(quantity))
	if cost.GreaterThan(l.cash) {
		return fmt.Errorf("buy %d %s at %s costs %s, cash %s: %w",
			quantity, instrument, px, cost, l.cash, ErrInsufficientCash)
	}

	l.cash = l.cash.Sub(cost)
	l.holdings[instrument] += quantity
	l.marks[instrument] = px
	return nil
}

// Sell removes quantity units of instrument at price and credits the
// proceeds to cash.
func (l *Ledger) Sell(instrument string, quantity int64, price float64) error {
	if quantity <= 0 {
		return fmt.Errorf("sell %d %s: %w", quantity, instrument, ErrInvalidQuantity)
	}
	px, err := toPrice(price)
	if err != nil {
		return fmt.Errorf("sell %d %s: %w", quantity, instrument, err)
	}

	held := l.holdings[instrument]
	if held < quantity {
		return fmt.Errorf("sell %d %s, holding %d: %w", quantity, instrument, held, ErrInsufficientHoldings)
	}

	l.holdings[instrument] = held - quantity
	if l.holdings[instrument] == 0 {
		delete(l.holdings, instrument)
		delete(l.marks, instrument)
	} else {
		l.marks[instrument] = px
	}
	l.cash = l.cash.Add(px.Mul(decimal.NewFromInt(quantity)))
	return nil
}

// MarkToMarket revalues holdings. Instruments with a missing or non-finite
// price keep their last known mark. Cash and holdings are not touched.
func (l *Ledger) MarkToMarket(prices map[string]float64) decimal.Decimal {
	for name := range l.holdings {
		px, ok := prices[name]
		if !ok {
			continue
		}
		if d, err := toPrice(px); err == nil {
			l.marks[name] = d
		}
	}

	total := l.cash
	for _, name := range l.sortedHoldings() {
		total = total.Add(l.marks[name].Mul(decimal.NewFromInt(l.holdings[name])))
	}
	l.total = total
	return total
}

// Cash returns available cash.
func (l *Ledger) Cash() decimal.Decimal { return l.cash }

// TotalValue returns the value computed by the last MarkToMarket.
func (l *Ledger) TotalValue() decimal.Decimal { return l.total }

// Initial returns the starting cash.
func (l *Ledger) Initial() decimal.Decimal { return l.initial }

// Holding returns the quantity held of instrument.
func (l *Ledger) Holding(instrument string) int64 { return l.holdings[instrument] }

// OpenPositions returns the number of instruments with a non-zero holding.
func (l *Ledger) OpenPositions() int { return len(l.holdings) }

// Snapshot is a read-only copy of the ledger state.
type Snapshot struct {
	Cash       float64          `json:"cash"`
	TotalValue float64          `json:"total_value"`
	Holdings   map[string]int64 `json:"holdings"`
}

// Snapshot returns a copy of the current state.
func (l *Ledger) Snapshot() Snapshot {
	h := make(map[string]int64, len(l.holdings))
	for k, v := range l.holdings {
		h[k] = v
	}
	return Snapshot{
		Cash:       l.cash.InexactFloat64(),
		TotalValue: l.total.InexactFloat64(),
		Holdings:   h,
	}
}

func (l *Ledger) sortedHoldings() []string {
	names := make([]string, 0, len(l.holdings))
	for name := range l.holdings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func toPrice(p float64) (decimal.Decimal, error) {
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return decimal.Zero, ErrInvalidPrice
	}
	return decimal.NewFromFloat(p), nil
}
