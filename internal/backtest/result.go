package backtest

import (
	"github.com/google/uuid"

	"norne/internal/domain"
	"norne/internal/ledger"
)

// Result is the output of one engine run.
type Result struct {
	RunID          uuid.UUID            `json:"run_id"`
	Strategy       string               `json:"strategy"`
	Instruments    []string             `json:"instruments"`
	InitialCapital float64              `json:"initial_capital"`
	Allocation     float64              `json:"allocation"`
	Equity         []domain.EquityPoint `json:"equity"`
	Trades         []domain.Trade       `json:"trades"`
	Final          ledger.Snapshot      `json:"final"`
}

// FinalEquity returns the last recorded total value, or the initial capital
// when the timeline was empty.
func (r *Result) FinalEquity() float64 {
	if len(r.Equity) == 0 {
		return r.InitialCapital
	}
	return r.Equity[len(r.Equity)-1].TotalValue
}
