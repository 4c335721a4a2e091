// Package domain holds the value types shared across the backtester: price
// bars, signals, trade records and equity curve points.
package domain

import (
	"math"
	"time"
)

// Exchange identifies a trading venue whose calendar governs a price series
// (e.g. "OSE", "XNYS").
type Exchange string

// Common exchange identifiers.
const (
	ExchangeOSE    Exchange = "OSE"
	ExchangeNYSE   Exchange = "XNYS"
	ExchangeNASDAQ Exchange = "XNAS"
)

// IsUS reports whether the exchange follows the US equity calendar.
func (e Exchange) IsUS() bool {
	return e == ExchangeNYSE || e == ExchangeNASDAQ
}

// Bar is a single daily OHLCV bar for one instrument.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// PricePoint is one dated close price. Close is NaN when the price on an
// otherwise valid trading day is unknown.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// Known reports whether the point carries a usable price.
func (p PricePoint) Known() bool {
	return !math.IsNaN(p.Close) && !math.IsInf(p.Close, 0)
}

// Observation is one dated scalar, such as a daily market return or a
// risk-free rate.
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Signal is the decision a strategy returns for one instrument on one day.
type Signal int

const (
	SignalHold Signal = iota
	SignalBuy
	SignalSell
)

// String returns "HOLD", "BUY" or "SELL".
func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Side is the direction of an executed trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is an executed fill in the trade log. Trades are appended and never
// mutated.
type Trade struct {
	Date       time.Time `json:"date"`
	Instrument string    `json:"instrument"`
	Side       Side      `json:"side"`
	Quantity   int64     `json:"quantity"`
	Price      float64   `json:"price"`
}

// EquityPoint is one row of the equity curve, recorded once per timeline
// date after that day's fills.
type EquityPoint struct {
	Date          time.Time `json:"date"`
	TotalValue    float64   `json:"total_value"`
	Cash          float64   `json:"cash"`
	OpenPositions int       `json:"open_positions"`
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateLayout is the canonical date format used in files and APIs.
const DateLayout = "2006-01-02"
