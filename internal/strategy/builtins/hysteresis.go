package builtins

// Regime is the position state of a hysteresis policy.
type Regime int

const (
	RegimeOut Regime = iota
	RegimeIn
)

// String returns "IN" or "OUT".
func (r Regime) String() string {
	if r == RegimeIn {
		return "IN"
	}
	return "OUT"
}

// Step applies one score to the regime. OUT becomes IN only at score >= k;
// IN becomes OUT only at score <= m. A negative score means the score is
// unknown and leaves the regime unchanged.
func Step(r Regime, score, k, m int) Regime {
	if score < 0 {
		return r
	}
	switch r {
	case RegimeOut:
		if score >= k {
			return RegimeIn
		}
	case RegimeIn:
		if score <= m {
			return RegimeOut
		}
	}
	return r
}

// Hysteresis runs the two-state machine over scores starting from OUT and
// returns the regime after each score.
func Hysteresis(scores []int, k, m int) []Regime {
	out := make([]Regime, len(scores))
	r := RegimeOut
	for i, s := range scores {
		r = Step(r, s, k, m)
		out[i] = r
	}
	return out
}

// Positions converts regimes to 0/1 exposure.
func Positions(regimes []Regime) []float64 {
	out := make([]float64, len(regimes))
	for i, r := range regimes {
		if r == RegimeIn {
			out[i] = 1
		}
	}
	return out
}
