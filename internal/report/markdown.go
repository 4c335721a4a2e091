package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"norne/internal/analysis"
	"norne/internal/domain"
	"norne/internal/search"
)

var printer = message.NewPrinter(language.English)

func money(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return printer.Sprintf("%.2f", v)
}

func ratio(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}

func pct(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

// table writes a GitHub-flavored Markdown table.
func table(w io.Writer, header []string, rows [][]string) error {
	var b strings.Builder
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, r := range rows {
		b.WriteString("| " + strings.Join(r, " | ") + " |\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// SummaryMarkdown writes the headline metrics of a run.
func SummaryMarkdown(w io.Writer, s analysis.Summary) error {
	return table(w, []string{"metric", "value"}, [][]string{
		{"initial capital", money(s.InitialCapital)},
		{"final equity", money(s.FinalEquity)},
		{"total return", pct(s.TotalReturn)},
		{"sharpe", ratio(s.Sharpe)},
		{"max drawdown", pct(s.MaxDrawdown)},
		{"trades", printer.Sprintf("%d", s.TotalTrades)},
		{"round trips", printer.Sprintf("%d", s.RoundTrips)},
		{"win rate", pct(s.WinRate)},
		{"profit factor", ratio(s.ProfitFactor)},
	})
}

// TradesMarkdown writes the trade log.
func TradesMarkdown(w io.Writer, trades []domain.Trade) error {
	rows := make([][]string, len(trades))
	for i, t := range trades {
		rows[i] = []string{
			t.Date.Format(domain.DateLayout),
			t.Instrument,
			string(t.Side),
			printer.Sprintf("%d", t.Quantity),
			money(t.Price),
		}
	}
	return table(w, []string{"date", "instrument", "side", "quantity", "price"}, rows)
}

// EquityMarkdown writes the last n points of the equity curve, or all of
// them when n <= 0.
func EquityMarkdown(w io.Writer, equity []domain.EquityPoint, n int) error {
	if n > 0 && len(equity) > n {
		equity = equity[len(equity)-n:]
	}
	rows := make([][]string, len(equity))
	for i, p := range equity {
		rows[i] = []string{
			p.Date.Format(domain.DateLayout),
			money(p.TotalValue),
			money(p.Cash),
			printer.Sprintf("%d", p.OpenPositions),
		}
	}
	return table(w, []string{"date", "total value", "cash", "open positions"}, rows)
}

// SearchMarkdown writes a ranked search table.
func SearchMarkdown(w io.Writer, parameter string, rows []search.Row) error {
	if parameter == "" {
		parameter = "candidate"
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{
			printer.Sprintf("%d", i+1),
			r.Candidate.String(),
			money(r.FinalStrategy),
			money(r.FinalBenchmark),
			ratio(r.ReturnRatio),
		}
	}
	return table(w, []string{"rank", parameter, "final strategy", "final benchmark", "return ratio"}, out)
}

// CAPMMarkdown writes the regression coefficients of a CAPM fit.
func CAPMMarkdown(w io.Writer, res analysis.CAPMResult) error {
	return table(w, []string{"statistic", "value"}, [][]string{
		{"alpha (daily)", fmt.Sprintf("%.6f", res.Alpha)},
		{"alpha (annual)", pct(res.AlphaAnnual)},
		{"beta", ratio(res.Beta)},
		{"r squared", ratio(res.RSquared)},
		{"observations", printer.Sprintf("%d", res.N)},
		{"period", res.Start.Format(domain.DateLayout) + " to " + res.End.Format(domain.DateLayout)},
	})
}
