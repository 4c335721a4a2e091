// Package indicator provides pure functions that derive indicator columns
// from a price series. Every function returns a new slice of the same length
// as its input and never looks at values after the row it computes.
package indicator

import (
	"fmt"
	"math"
)

// Spec describes a simple moving average column.
type Spec struct {
	Window     int
	MinPeriods int // 0 means Window
}

// SMA returns a Spec for a window that needs a full window of valid points.
func SMA(window int) Spec {
	return Spec{Window: window, MinPeriods: window}
}

// PartialSMA returns a Spec that emits a mean as soon as one valid point is
// available, averaging whatever the window holds so far.
func PartialSMA(window int) Spec {
	return Spec{Window: window, MinPeriods: 1}
}

// Name returns the canonical column name, e.g. "sma_50" or "sma_50_p1".
func (s Spec) Name() string {
	mp := s.minPeriods()
	if mp == s.Window {
		return fmt.Sprintf("sma_%d", s.Window)
	}
	return fmt.Sprintf("sma_%d_p%d", s.Window, mp)
}

// Compute applies the spec to values.
func (s Spec) Compute(values []float64) []float64 {
	return RollingMean(values, s.Window, s.minPeriods())
}

func (s Spec) minPeriods() int {
	if s.MinPeriods <= 0 || s.MinPeriods > s.Window {
		return s.Window
	}
	return s.MinPeriods
}

// RollingMean computes the trailing mean over the last window rows. NaN
// values are skipped; a row whose window holds fewer than minPeriods valid
// values is NaN.
func RollingMean(values []float64, window, minPeriods int) []float64 {
	out := make([]float64, len(values))
	if window <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	if minPeriods <= 0 {
		minPeriods = window
	}

	// Each window is summed from scratch: a running sum drifts, and equal
	// averages must compare equal.
	for i := range values {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		sum := 0.0
		count := 0
		for _, v := range values[lo : i+1] {
			if isValid(v) {
				sum += v
				count++
			}
		}
		if count > 0 && count >= minPeriods {
			out[i] = sum / float64(count)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// AlignmentScore counts the pairwise "shorter average above longer average"
// comparisons short>mid, short>long and mid>long for each row. Rows where any
// input is NaN score -1.
func AlignmentScore(short, mid, long []float64) []int {
	n := len(short)
	if len(mid) < n {
		n = len(mid)
	}
	if len(long) < n {
		n = len(long)
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = ScoreAt(short[i], mid[i], long[i])
	}
	return out
}

// ScoreAt is the single-row form of AlignmentScore.
func ScoreAt(short, mid, long float64) int {
	if !isValid(short) || !isValid(mid) || !isValid(long) {
		return -1
	}
	score := 0
	if short > mid {
		score++
	}
	if short > long {
		score++
	}
	if mid > long {
		score++
	}
	return score
}

func isValid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
