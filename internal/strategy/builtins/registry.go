package builtins

import (
	"fmt"

	"norne/internal/indicator"
	"norne/internal/strategy"
)

// Registered strategy names.
const (
	NameSMACross   = "sma-cross"
	NameThreshold  = "threshold"
	NameHold       = "hold"
	NameBuyAndHold = "buy-and-hold"
)

// Register adds every built-in strategy to r.
func Register(r *strategy.Registry) {
	r.Register(NameSMACross, newSMACross)
	r.Register(NameThreshold, newThreshold)
	r.Register(NameHold, func(strategy.Params) (strategy.Strategy, error) { return Hold{}, nil })
	r.Register(NameBuyAndHold, func(strategy.Params) (strategy.Strategy, error) { return BuyAndHold{}, nil })
}

// NewRegistry returns a registry holding the built-in strategies.
func NewRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	Register(r)
	return r
}

func newSMACross(p strategy.Params) (strategy.Strategy, error) {
	windows := p.Windows
	if len(windows) == 0 {
		windows = []int{5, 20}
	}
	if len(windows) != 2 {
		return nil, fmt.Errorf("sma-cross needs 2 windows, got %d: %w", len(windows), strategy.ErrInvalidParams)
	}
	if err := checkWindows(windows); err != nil {
		return nil, err
	}
	mp := p.MinPeriods
	if mp == 0 {
		mp = 1
	}
	return NewSMACrossSpecs(
		indicator.Spec{Window: windows[0], MinPeriods: mp},
		indicator.Spec{Window: windows[1], MinPeriods: mp},
	), nil
}

func newThreshold(p strategy.Params) (strategy.Strategy, error) {
	windows := p.Windows
	switch len(windows) {
	case 0:
		windows = []int{DefaultShortWindow, DefaultMidWindow, DefaultLongWindow}
	case 1:
		w := ScaledWindows(windows[0])
		windows = w[:]
	}
	if len(windows) != 3 {
		return nil, fmt.Errorf("threshold needs 3 windows, got %d: %w", len(windows), strategy.ErrInvalidParams)
	}
	if err := checkWindows(windows); err != nil {
		return nil, err
	}
	spec := func(w int) indicator.Spec { return indicator.Spec{Window: w, MinPeriods: p.MinPeriods} }
	return NewThresholdScore(spec(windows[0]), spec(windows[1]), spec(windows[2]), p.Entry, p.ExitOrDefault())
}

func checkWindows(windows []int) error {
	for i, w := range windows {
		if w <= 0 {
			return fmt.Errorf("window %d must be positive: %w", w, strategy.ErrInvalidParams)
		}
		if i > 0 && w <= windows[i-1] {
			return fmt.Errorf("windows %v must be strictly increasing: %w", windows, strategy.ErrInvalidParams)
		}
	}
	return nil
}

// ScaledWindows derives mid and long windows of twice and four times short,
// each kept strictly above the previous one.
func ScaledWindows(short int) [3]int {
	mid := max(2*short, short+1)
	return [3]int{short, mid, max(4*short, mid+1)}
}
