package builtins

import (
	"norne/internal/domain"
	"norne/internal/series"
	"norne/internal/strategy"
)

// Compile-time interface check.
var (
	_ strategy.Strategy = Hold{}
	_ strategy.Strategy = BuyAndHold{}
)

// Hold never trades.
type Hold struct{}

// Name returns "hold".
func (Hold) Name() string { return NameHold }

// GenerateSignal always returns SignalHold.
func (Hold) GenerateSignal(string, series.View) domain.Signal { return domain.SignalHold }

// BuyAndHold buys every instrument on its first tradable day and never sells.
// It is the benchmark a parameter search compares against.
type BuyAndHold struct{}

// Name returns "buy-and-hold".
func (BuyAndHold) Name() string { return NameBuyAndHold }

// GenerateSignal always returns SignalBuy; the engine ignores repeat buys.
func (BuyAndHold) GenerateSignal(string, series.View) domain.Signal { return domain.SignalBuy }
