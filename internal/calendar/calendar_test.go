package calendar

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"norne/internal/domain"
)

func date(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestWeekday_TradingDays(t *testing.T) {
	cal := NewWeekday(date("2024-01-01"))
	days, err := cal.TradingDays(context.Background(), domain.ExchangeOSE, date("2023-12-29"), date("2024-01-08"))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		date("2023-12-29"),
		date("2024-01-02"), date("2024-01-03"), date("2024-01-04"), date("2024-01-05"),
		date("2024-01-08"),
	}, days)
}

func TestParseFillMode(t *testing.T) {
	m, err := ParseFillMode("")
	require.NoError(t, err)
	assert.Equal(t, FillAlign, m)

	m, err = ParseFillMode(" RAW ")
	require.NoError(t, err)
	assert.Equal(t, FillRaw, m)

	_, err = ParseFillMode("ffill")
	assert.ErrorIs(t, err, ErrUnknownFillMode)
}

func TestAlign_ReindexesOntoTradingDays(t *testing.T) {
	cal := NewWeekday()
	raw := []domain.PricePoint{
		{Date: date("2024-01-05"), Close: 13},
		{Date: date("2024-01-02"), Close: 10},
		{Date: date("2024-01-06"), Close: 99}, // Saturday
		{Date: date("2024-01-08"), Close: 14},
		{Date: date("2024-01-02"), Close: 11}, // later duplicate wins
	}

	got, err := Align(context.Background(), cal, domain.ExchangeOSE, raw, FillAlign)
	require.NoError(t, err)

	wantDates := []time.Time{date("2024-01-02"), date("2024-01-03"), date("2024-01-04"), date("2024-01-05"), date("2024-01-08")}
	require.Len(t, got, len(wantDates))
	for i, p := range got {
		assert.Equal(t, wantDates[i], p.Date)
	}
	assert.Equal(t, 11.0, got[0].Close)
	assert.True(t, math.IsNaN(got[1].Close), "gap is unknown, not interpolated")
	assert.True(t, math.IsNaN(got[2].Close))
	assert.Equal(t, 13.0, got[3].Close)
	assert.Equal(t, 14.0, got[4].Close)
}

func TestAlign_Idempotent(t *testing.T) {
	cal := NewWeekday(date("2024-01-03"))
	raw := []domain.PricePoint{
		{Date: date("2024-01-01"), Close: 1},
		{Date: date("2024-01-03"), Close: 2},
		{Date: date("2024-01-09"), Close: 3},
		{Date: date("2024-01-13"), Close: 4},
		{Date: date("2024-01-15"), Close: 5},
	}

	once, err := Align(context.Background(), cal, domain.ExchangeOSE, raw, FillAlign)
	require.NoError(t, err)
	twice, err := Align(context.Background(), cal, domain.ExchangeOSE, once, FillAlign)
	require.NoError(t, err)

	require.Equal(t, len(once), len(twice))
	for i := range once {
		assert.Equal(t, once[i].Date, twice[i].Date)
		if math.IsNaN(once[i].Close) {
			assert.True(t, math.IsNaN(twice[i].Close))
		} else {
			assert.Equal(t, once[i].Close, twice[i].Close)
		}
	}
}

func TestAlign_Raw(t *testing.T) {
	raw := []domain.PricePoint{
		{Date: date("2024-01-06"), Close: 2},
		{Date: date("2024-01-02"), Close: 1},
	}
	got, err := Align(context.Background(), NewWeekday(), domain.ExchangeOSE, raw, FillRaw)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, date("2024-01-06"), got[1].Date, "raw mode keeps non-trading days")
}

func TestAlign_UnknownMode(t *testing.T) {
	_, err := Align(context.Background(), NewWeekday(), domain.ExchangeOSE, nil, FillMode("ffill"))
	assert.ErrorIs(t, err, ErrUnknownFillMode)
}

func TestMissingDays(t *testing.T) {
	raw := []domain.PricePoint{
		{Date: date("2024-01-02"), Close: 1},
		{Date: date("2024-01-04"), Close: math.NaN()},
		{Date: date("2024-01-05"), Close: 2},
	}
	missing, err := MissingDays(context.Background(), NewWeekday(), domain.ExchangeOSE, raw)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date("2024-01-03"), date("2024-01-04")}, missing)
}

func TestAlpacaCalendar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"date":"2024-07-03","open":"09:30","close":"13:00"},
			{"date":"2024-07-05","open":"09:30","close":"16:00"}
		]`))
	}))
	defer srv.Close()

	cal := NewAlpacaCalendar("key", "secret", srv.URL)
	days, err := cal.TradingDays(context.Background(), domain.ExchangeNYSE, date("2024-07-03"), date("2024-07-05"))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date("2024-07-03"), date("2024-07-05")}, days)

	_, err = cal.TradingDays(context.Background(), domain.ExchangeOSE, date("2024-07-03"), date("2024-07-05"))
	assert.ErrorIs(t, err, ErrUnsupportedExchange)
}
