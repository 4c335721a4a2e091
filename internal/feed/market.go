package feed

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"norne/internal/domain"
	"norne/internal/series"
)

// TradingDaysPerYear converts annual rates to daily ones.
const TradingDaysPerYear = 252

// ReadChangePercentCSV reads a market index export and returns its daily
// simple returns from the "Change %" column ("1.23%" becomes 0.0123).
// Rows with an unparsable change are dropped.
func ReadChangePercentCSV(path string) ([]domain.Observation, error) {
	return readObservations(path, []string{"Change %", "Change%"}, func(raw string) float64 {
		return parseNumber(strings.TrimSuffix(strings.TrimSpace(raw), "%")) / 100
	})
}

// ReadYieldCSV reads an annual government bond yield export (percent, in the
// close column) and returns the daily simple risk-free rate
// yield / 100 / 252.
func ReadYieldCSV(path string) ([]domain.Observation, error) {
	return readObservations(path, CloseColumns, func(raw string) float64 {
		return parseNumber(strings.TrimSuffix(strings.TrimSpace(raw), "%")) / 100 / TradingDaysPerYear
	})
}

func readObservations(path string, candidates []string, parse func(string) float64) ([]domain.Observation, error) {
	name := InstrumentFromFilename(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	header, rows, err := readTable(f)
	if err != nil {
		return nil, series.NewDataError("read observations", name, fmt.Errorf("%w: %v", series.ErrUnparsable, err))
	}
	dateCol, ok := column(header, "Date")
	if !ok {
		return nil, series.NewDataError("read observations", name, fmt.Errorf("%w: Date", series.ErrMissingField))
	}
	valCol, ok := column(header, candidates...)
	if !ok {
		return nil, series.NewDataError("read observations", name, fmt.Errorf("%w: one of %v", series.ErrMissingField, candidates))
	}

	byDate := make(map[int64]domain.Observation)
	for _, row := range rows {
		if dateCol >= len(row) || valCol >= len(row) {
			continue
		}
		d, ok := parseDate(row[dateCol])
		if !ok {
			continue
		}
		v := parse(row[valCol])
		if math.IsNaN(v) {
			continue
		}
		byDate[d.Unix()] = domain.Observation{Date: d, Value: v}
	}
	if len(byDate) == 0 {
		return nil, series.NewDataError("read observations", name, series.ErrNoData)
	}

	out := make([]domain.Observation, 0, len(byDate))
	for _, o := range byDate {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
