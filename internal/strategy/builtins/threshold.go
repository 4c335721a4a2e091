package builtins

import (
	"fmt"
	"sort"
	"time"

	"norne/internal/domain"
	"norne/internal/indicator"
	"norne/internal/series"
	"norne/internal/strategy"
)

// Compile-time interface check.
var (
	_ strategy.Strategy = (*ThresholdScore)(nil)
	_ strategy.Preparer = (*ThresholdScore)(nil)
	_ strategy.Resetter = (*ThresholdScore)(nil)
)

// Default moving-average windows for the alignment score.
const (
	DefaultShortWindow = 50
	DefaultMidWindow   = 100
	DefaultLongWindow  = 200
)

// ThresholdScore scores the ordering of three moving averages (0 to 3) and
// holds a per-instrument IN/OUT regime. It enters when the score reaches
// entry and leaves when it falls to exit or below. The signal is the level of
// the regime, so an entry the engine could not fill is retried on later days.
type ThresholdScore struct {
	short, mid, long indicator.Spec
	entry, exit      int

	state map[string]*regimeState
}

type regimeState struct {
	regime Regime
	last   time.Time
	seen   bool
}

// NewThresholdScore creates a ThresholdScore over the given averages. exit
// must be below entry.
func NewThresholdScore(short, mid, long indicator.Spec, entry, exit int) (*ThresholdScore, error) {
	if entry < 0 || entry > 3 {
		return nil, fmt.Errorf("entry %d outside [0,3]: %w", entry, strategy.ErrInvalidParams)
	}
	if exit >= entry {
		return nil, fmt.Errorf("exit %d must be below entry %d: %w", exit, entry, strategy.ErrInvalidParams)
	}
	return &ThresholdScore{
		short: short,
		mid:   mid,
		long:  long,
		entry: entry,
		exit:  exit,
		state: make(map[string]*regimeState),
	}, nil
}

// Name returns "threshold".
func (s *ThresholdScore) Name() string { return NameThreshold }

// String describes the strategy and its parameters.
func (s *ThresholdScore) String() string {
	return fmt.Sprintf("%s(%s,%s,%s;k=%d,m=%d)", NameThreshold, s.short.Name(), s.mid.Name(), s.long.Name(), s.entry, s.exit)
}

// Entry returns the entry threshold.
func (s *ThresholdScore) Entry() int { return s.entry }

// Exit returns the exit threshold.
func (s *ThresholdScore) Exit() int { return s.exit }

// Indicators returns the three averages the score is built from.
func (s *ThresholdScore) Indicators() []indicator.Spec {
	return []indicator.Spec{s.short, s.mid, s.long}
}

// Reset forgets every instrument's regime.
func (s *ThresholdScore) Reset() {
	s.state = make(map[string]*regimeState)
}

// Regime returns the current regime for instrument.
func (s *ThresholdScore) Regime(instrument string) Regime {
	if st, ok := s.state[instrument]; ok {
		return st.regime
	}
	return RegimeOut
}

// GenerateSignal folds every history row not seen on a previous call into the
// instrument's regime. It returns Buy while IN and Sell while OUT, and Hold
// when the latest row has no score.
func (s *ThresholdScore) GenerateSignal(instrument string, h series.View) domain.Signal {
	n := h.Len()
	if n < 2 {
		return domain.SignalHold
	}

	st, ok := s.state[instrument]
	if !ok {
		st = &regimeState{regime: RegimeOut}
		s.state[instrument] = st
	}

	from := 0
	if st.seen {
		from = sort.Search(n, func(i int) bool { return h.Date(i).After(st.last) })
	}

	for i := from; i < n; i++ {
		st.regime = Step(st.regime, s.scoreAt(h, i), s.entry, s.exit)
	}
	st.last = h.Date(n - 1)
	st.seen = true

	switch {
	case s.scoreAt(h, n-1) < 0:
		return domain.SignalHold
	case st.regime == RegimeIn:
		return domain.SignalBuy
	default:
		return domain.SignalSell
	}
}

func (s *ThresholdScore) scoreAt(h series.View, i int) int {
	return indicator.ScoreAt(
		h.Value(s.short.Name(), i),
		h.Value(s.mid.Name(), i),
		h.Value(s.long.Name(), i),
	)
}
