// Package report renders backtest output as CSV files and Markdown tables.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"norne/internal/analysis"
	"norne/internal/domain"
	"norne/internal/search"
)

func fnum(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteEquityCSV writes the equity curve, one row per date.
func WriteEquityCSV(w io.Writer, equity []domain.EquityPoint) error {
	rows := make([][]string, len(equity))
	for i, p := range equity {
		rows[i] = []string{
			p.Date.Format(domain.DateLayout),
			fnum(p.TotalValue),
			fnum(p.Cash),
			strconv.Itoa(p.OpenPositions),
		}
	}
	return writeCSV(w, []string{"date", "total_value", "cash", "open_positions"}, rows)
}

// WriteTradesCSV writes the trade log in execution order.
func WriteTradesCSV(w io.Writer, trades []domain.Trade) error {
	rows := make([][]string, len(trades))
	for i, t := range trades {
		rows[i] = []string{
			t.Date.Format(domain.DateLayout),
			t.Instrument,
			string(t.Side),
			strconv.FormatInt(t.Quantity, 10),
			fnum(t.Price),
		}
	}
	return writeCSV(w, []string{"date", "instrument", "side", "quantity", "price"}, rows)
}

// WriteSearchCSV writes a ranked search table.
func WriteSearchCSV(w io.Writer, parameter string, rows []search.Row) error {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{
			strconv.Itoa(i + 1),
			r.Candidate.String(),
			fnum(r.FinalStrategy),
			fnum(r.FinalBenchmark),
			fnum(r.ReturnRatio),
		}
	}
	if parameter == "" {
		parameter = "candidate"
	}
	return writeCSV(w, []string{"rank", parameter, "final_strategy", "final_benchmark", "return_ratio"}, out)
}

// WriteCAPMCSV writes the cumulative series of a CAPM fit.
func WriteCAPMCSV(w io.Writer, res analysis.CAPMResult) error {
	if len(res.CumulativeMarket) != len(res.CumulativeStrategy) || len(res.CumulativeExcess) != len(res.CumulativeStrategy) {
		return fmt.Errorf("capm series lengths differ: %d, %d, %d",
			len(res.CumulativeStrategy), len(res.CumulativeMarket), len(res.CumulativeExcess))
	}
	rows := make([][]string, len(res.CumulativeStrategy))
	for i, s := range res.CumulativeStrategy {
		rows[i] = []string{
			s.Date.Format(domain.DateLayout),
			fnum(s.Value),
			fnum(res.CumulativeMarket[i].Value),
			fnum(res.CumulativeExcess[i].Value),
		}
	}
	return writeCSV(w, []string{"date", "cumulative_strategy", "cumulative_market", "cumulative_excess"}, rows)
}
