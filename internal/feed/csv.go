package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"norne/internal/domain"
	"norne/internal/series"
)

// Compile-time interface check.
var _ Supplier = (*CSVSupplier)(nil)

// CloseColumns are the header names accepted as the close price, in order of
// preference.
var CloseColumns = []string{"Close", "Close/Last", "Price", "Last", "Adj Close", "AdjClose"}

// dateLayouts are tried in order when parsing the Date column.
var dateLayouts = []string{
	domain.DateLayout,
	"01/02/2006",
	"1/2/2006",
	"02.01.2006",
	"Jan 02, 2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// CSVSupplier reads Investing.com style price history exports. Each
// instrument maps to one file; instruments without an explicit file are
// looked up as <Dir>/<instrument>.csv.
type CSVSupplier struct {
	Dir   string
	Files map[string]string

	log *slog.Logger
}

// NewCSVSupplier creates a CSVSupplier.
func NewCSVSupplier(dir string, files map[string]string) *CSVSupplier {
	if files == nil {
		files = make(map[string]string)
	}
	return &CSVSupplier{
		Dir:   dir,
		Files: files,
		log:   slog.Default().With("component", "csv-supplier"),
	}
}

// Path returns the file read for instrument.
func (s *CSVSupplier) Path(instrument string) string {
	if p, ok := s.Files[instrument]; ok {
		return p
	}
	return filepath.Join(s.Dir, instrument+".csv")
}

// Fetch implements Supplier.
func (s *CSVSupplier) Fetch(_ context.Context, instrument string, start, end time.Time) ([]domain.PricePoint, error) {
	f, err := os.Open(s.Path(instrument))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, series.NewDataError("fetch csv", instrument, fmt.Errorf("%w: %v", series.ErrNoData, err))
		}
		return nil, fmt.Errorf("opening %s: %w", s.Path(instrument), err)
	}
	defer f.Close()

	points, skipped, err := ParseCSV(f, instrument)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		s.log.Warn("skipped rows with unparsable dates", "instrument", instrument, "rows", skipped)
	}

	out := points[:0]
	for _, p := range points {
		if inRange(p.Date, start, end) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, series.NewDataError("fetch csv", instrument, series.ErrNoData)
	}
	return out, nil
}

// ParseCSV reads a price history export. Header names are trimmed and the
// close column is resolved from CloseColumns. Thousands separators and
// spaces are stripped from prices; a price that still does not parse is
// kept as NaN. Rows whose date does not parse are dropped and counted in
// skipped. Points are returned in file order.
func ParseCSV(r io.Reader, instrument string) (points []domain.PricePoint, skipped int, err error) {
	header, rows, err := readTable(r)
	if err != nil {
		return nil, 0, series.NewDataError("parse csv", instrument, fmt.Errorf("%w: %v", series.ErrUnparsable, err))
	}
	if len(header) == 0 {
		return nil, 0, series.NewDataError("parse csv", instrument, series.ErrNoData)
	}

	dateCol, ok := column(header, "Date")
	if !ok {
		return nil, 0, series.NewDataError("parse csv", instrument, fmt.Errorf("%w: Date (columns %v)", series.ErrMissingField, header))
	}
	closeCol, ok := column(header, CloseColumns...)
	if !ok {
		return nil, 0, series.NewDataError("parse csv", instrument, fmt.Errorf("%w: close (columns %v)", series.ErrMissingField, header))
	}

	for _, row := range rows {
		if dateCol >= len(row) || closeCol >= len(row) {
			skipped++
			continue
		}
		d, ok := parseDate(row[dateCol])
		if !ok {
			skipped++
			continue
		}
		points = append(points, domain.PricePoint{Date: d, Close: parseNumber(row[closeCol])})
	}

	if len(points) == 0 {
		if skipped > 0 {
			return nil, skipped, series.NewDataError("parse csv", instrument, fmt.Errorf("%w: no row has a valid date", series.ErrUnparsable))
		}
		return nil, 0, series.NewDataError("parse csv", instrument, series.ErrNoData)
	}
	return points, skipped, nil
}

// InstrumentFromFilename derives an instrument name from an export file
// name, e.g. "Equinor ASA Stock Price History.csv" becomes "Equinor ASA".
func InstrumentFromFilename(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.Replace(name, " Stock Price History", "", 1)
	return strings.TrimSpace(name)
}

// readTable decodes a CSV stream, dropping a UTF-8 or UTF-16 byte order mark.
func readTable(r io.Reader) ([]string, [][]string, error) {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(dec)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	return header, records[1:], nil
}

// column returns the index of the first candidate present in header.
func column(header []string, candidates ...string) (int, bool) {
	for _, c := range candidates {
		for i, h := range header {
			if h == c {
				return i, true
			}
		}
	}
	return -1, false
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return domain.DateOnly(t), true
		}
	}
	return time.Time{}, false
}

// parseNumber strips thousands separators and spaces. Unparsable input is
// NaN.
func parseNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimPrefix(s, "$")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
