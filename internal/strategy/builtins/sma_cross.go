// Package builtins provides built-in strategy implementations that ship with
// the norne backtester.
package builtins

import (
	"fmt"
	"math"

	"norne/internal/domain"
	"norne/internal/indicator"
	"norne/internal/series"
	"norne/internal/strategy"
)

// Compile-time interface check.
var (
	_ strategy.Strategy = (*SMACross)(nil)
	_ strategy.Preparer = (*SMACross)(nil)
)

// SMACross implements a simple moving average crossover strategy. It generates
// a buy signal when the short-period SMA crosses above the long-period SMA,
// and a sell signal when it crosses below.
type SMACross struct {
	short indicator.Spec
	long  indicator.Spec
}

// NewSMACross creates a new SMACross strategy with the specified short and
// long moving average periods. Averages are emitted from the first close on
// (partial windows), so a crossing can fire before the long window fills.
func NewSMACross(short, long int) *SMACross {
	return &SMACross{
		short: indicator.PartialSMA(short),
		long:  indicator.PartialSMA(long),
	}
}

// NewSMACrossSpecs creates an SMACross with explicit indicator specs.
func NewSMACrossSpecs(short, long indicator.Spec) *SMACross {
	return &SMACross{short: short, long: long}
}

// Name returns "sma-cross".
func (s *SMACross) Name() string {
	return NameSMACross
}

// String describes the strategy and its parameters.
func (s *SMACross) String() string {
	return fmt.Sprintf("%s(%s,%s)", NameSMACross, s.short.Name(), s.long.Name())
}

// Indicators returns the two moving averages the strategy reads.
func (s *SMACross) Indicators() []indicator.Spec {
	return []indicator.Spec{s.short, s.long}
}

// GenerateSignal compares the averages on the last two history rows.
func (s *SMACross) GenerateSignal(_ string, h series.View) domain.Signal {
	n := h.Len()
	if n < 2 {
		return domain.SignalHold
	}

	prevShort := h.Value(s.short.Name(), n-2)
	prevLong := h.Value(s.long.Name(), n-2)
	curShort := h.Value(s.short.Name(), n-1)
	curLong := h.Value(s.long.Name(), n-1)
	for _, v := range []float64{prevShort, prevLong, curShort, curLong} {
		if math.IsNaN(v) {
			return domain.SignalHold
		}
	}

	switch {
	case prevShort <= prevLong && curShort > curLong:
		return domain.SignalBuy
	case prevShort >= prevLong && curShort < curLong:
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}
