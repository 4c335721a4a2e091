package backtest

import (
	"fmt"
	"math"
	"time"
)

// Config holds the run parameters of an Engine.
type Config struct {
	// Start and End bound the timeline (inclusive). A zero value leaves
	// that side open.
	Start time.Time
	End   time.Time

	// InitialCapital is the starting cash.
	InitialCapital float64

	// Allocation is the fraction of total value committed to one new
	// position, in (0, 1].
	Allocation float64
}

// ConfigError reports an invalid engine configuration. It is returned at
// construction, before any simulation runs.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("backtest config: %s = %v: %s", e.Field, e.Value, e.Reason)
}

// Validate checks c and returns a *ConfigError for the first problem found.
func (c Config) Validate() error {
	if math.IsNaN(c.Allocation) || c.Allocation <= 0 || c.Allocation > 1 {
		return &ConfigError{Field: "allocation", Value: c.Allocation, Reason: "must be in (0, 1]"}
	}
	if math.IsNaN(c.InitialCapital) || math.IsInf(c.InitialCapital, 0) || c.InitialCapital <= 0 {
		return &ConfigError{Field: "initial_capital", Value: c.InitialCapital, Reason: "must be positive"}
	}
	if !c.Start.IsZero() && !c.End.IsZero() && c.End.Before(c.Start) {
		return &ConfigError{Field: "end", Value: c.End.Format("2006-01-02"), Reason: "before start " + c.Start.Format("2006-01-02")}
	}
	return nil
}

// Bounds returns the timeline bounds with open sides widened to the
// earliest and latest representable dates.
func (c Config) Bounds() (time.Time, time.Time) {
	start, end := c.Start, c.End
	if start.IsZero() {
		start = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if end.IsZero() {
		end = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	return start, end
}
