package feed

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"norne/internal/calendar"
	"norne/internal/domain"
	"norne/internal/series"
	"norne/internal/store"
)

func date(s string) time.Time {
	t, _ := time.Parse(domain.DateLayout, s)
	return t
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

const investingExport = "\ufeff\"Date\",\"Price\",\"Open\",\"High\",\"Low\",\"Vol.\",\"Change %\"\n" +
	"\"01/04/2024\",\"1,234.50\",\"1,230.00\",\"1,240.00\",\"1,220.00\",\"1.2M\",\"0.50%\"\n" +
	"\"01/03/2024\",\"1,228.36\",\"1,210.00\",\"1,230.00\",\"1,205.00\",\"1.1M\",\"1.10%\"\n" +
	"\"not a date\",\"1\",\"1\",\"1\",\"1\",\"1\",\"1%\"\n" +
	"\"01/02/2024\",\"-\",\"1,200.00\",\"1,215.00\",\"1,195.00\",\"0.9M\",\"-0.20%\"\n"

func TestParseCSV_InvestingExport(t *testing.T) {
	points, skipped, err := ParseCSV(strings.NewReader(investingExport), "OBX")
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, points, 3)

	assert.Equal(t, date("2024-01-04"), points[0].Date)
	assert.Equal(t, 1234.5, points[0].Close)
	assert.Equal(t, 1228.36, points[1].Close)
	assert.True(t, math.IsNaN(points[2].Close), "unparsable price is unknown")
}

func TestParseCSV_HeaderWhitespaceAndCloseLast(t *testing.T) {
	in := " Date , Close/Last ,Volume\n2024-01-02, $10.5 ,100\n"
	points, _, err := ParseCSV(strings.NewReader(in), "X")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 10.5, points[0].Close)
}

func TestParseCSV_Errors(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader("Date,Volume\n2024-01-02,1\n"), "X")
	assert.ErrorIs(t, err, series.ErrMissingField)
	var de *series.DataError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "X", de.Instrument)

	_, _, err = ParseCSV(strings.NewReader("Close\n1\n"), "X")
	assert.ErrorIs(t, err, series.ErrMissingField)

	_, _, err = ParseCSV(strings.NewReader("Date,Close\n"), "X")
	assert.ErrorIs(t, err, series.ErrNoData)

	_, _, err = ParseCSV(strings.NewReader("Date,Close\nyesterday,1\n"), "X")
	assert.ErrorIs(t, err, series.ErrUnparsable)

	_, _, err = ParseCSV(strings.NewReader(""), "X")
	assert.ErrorIs(t, err, series.ErrNoData)
}

func TestCSVSupplier_Fetch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "OBX.csv", investingExport)
	other := writeFile(t, dir, "other.csv", "Date,Close\n2024-02-01,5\n")

	s := NewCSVSupplier(dir, map[string]string{"EQNR": other})

	points, err := s.Fetch(context.Background(), "OBX", date("2024-01-03"), time.Time{})
	require.NoError(t, err)
	assert.Len(t, points, 2)

	points, err = s.Fetch(context.Background(), "EQNR", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 5.0, points[0].Close)

	_, err = s.Fetch(context.Background(), "OBX", date("2025-01-01"), time.Time{})
	assert.ErrorIs(t, err, series.ErrNoData)

	_, err = s.Fetch(context.Background(), "MISSING", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, series.ErrNoData)
}

func TestInstrumentFromFilename(t *testing.T) {
	assert.Equal(t, "Equinor ASA", InstrumentFromFilename("/raw/Equinor ASA Stock Price History.csv"))
	assert.Equal(t, "OBX", InstrumentFromFilename("OBX.csv"))
}

func TestReadChangePercentAndYield(t *testing.T) {
	dir := t.TempDir()
	market := writeFile(t, dir, "obx.csv", investingExport)
	yield := writeFile(t, dir, "yield.csv", "Date,Price,Change %\n01/03/2024,2.52,0.1%\n01/02/2024,3.78,0.2%\n")

	rets, err := ReadChangePercentCSV(market)
	require.NoError(t, err)
	require.Len(t, rets, 3)
	assert.Equal(t, date("2024-01-02"), rets[0].Date, "sorted ascending")
	assert.InDelta(t, -0.002, rets[0].Value, 1e-12)
	assert.InDelta(t, 0.005, rets[2].Value, 1e-12)

	rf, err := ReadYieldCSV(yield)
	require.NoError(t, err)
	require.Len(t, rf, 2)
	assert.InDelta(t, 3.78/100/252, rf[0].Value, 1e-15)

	_, err = ReadChangePercentCSV(writeFile(t, dir, "bad.csv", "Date,Price\n2024-01-02,1\n"))
	assert.ErrorIs(t, err, series.ErrMissingField)
}

func TestStoreSupplier(t *testing.T) {
	ps := store.NewParquetStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, ps.WriteBars(ctx, domain.ExchangeOSE, []domain.Bar{
		{Symbol: "NHY", Timestamp: date("2024-01-02"), Close: 60},
		{Symbol: "NHY", Timestamp: date("2024-01-03"), Close: 61},
	}))

	s := NewStoreSupplier(ps, domain.ExchangeOSE)
	points, err := s.Fetch(ctx, "NHY", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 61.0, points[1].Close)

	_, err = s.Fetch(ctx, "DNB", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, series.ErrNoData)
}

func TestLoader(t *testing.T) {
	sup := SupplierFunc(func(_ context.Context, instrument string, _, _ time.Time) ([]domain.PricePoint, error) {
		switch instrument {
		case "A":
			return []domain.PricePoint{
				{Date: date("2024-01-02"), Close: 1},
				{Date: date("2024-01-05"), Close: 2},
			}, nil
		case "B":
			return []domain.PricePoint{{Date: date("2024-01-03"), Close: 3}}, nil
		default:
			return nil, series.NewDataError("fetch", instrument, series.ErrNoData)
		}
	})

	l, err := NewLoader(sup, calendar.NewWeekday(), calendar.FillAlign)
	require.NoError(t, err)

	u, err := l.Load(context.Background(), []Instrument{
		{ID: "B", Exchange: domain.ExchangeOSE},
		{ID: "A", Exchange: domain.ExchangeOSE},
	}, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, u.Instruments())

	a, _ := u.Get("A")
	assert.Equal(t, 4, a.Len(), "gaps filled with unknown closes")
	assert.True(t, math.IsNaN(a.Close(1)))

	_, err = l.Load(context.Background(), []Instrument{{ID: "C"}}, time.Time{}, time.Time{})
	assert.ErrorIs(t, err, series.ErrNoData)

	_, err = NewLoader(sup, nil, calendar.FillMode("ffill"))
	assert.ErrorIs(t, err, calendar.ErrUnknownFillMode)

	_, err = NewLoader(sup, nil, calendar.FillAlign)
	assert.Error(t, err)
}
