package ledger

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuySell(t *testing.T) {
	l := New(1000)

	require.NoError(t, l.Buy("EQNR", 4, 100))
	assert.True(t, l.Cash().Equal(decimal.NewFromInt(600)))
	assert.Equal(t, int64(4), l.Holding("EQNR"))
	assert.Equal(t, 1, l.OpenPositions())

	require.NoError(t, l.Sell("EQNR", 4, 110))
	assert.True(t, l.Cash().Equal(decimal.NewFromInt(1040)))
	assert.Equal(t, int64(0), l.Holding("EQNR"))
	assert.Equal(t, 0, l.OpenPositions())
}

func TestBuy_InsufficientCashIsRejectedNotClamped(t *testing.T) {
	l := New(400)
	err := l.Buy("A", 10, 50)
	require.ErrorIs(t, err, ErrInsufficientCash)
	assert.True(t, l.Cash().Equal(decimal.NewFromInt(400)), "cash untouched on rejection")
	assert.Equal(t, int64(0), l.Holding("A"))

	require.NoError(t, l.Buy("A", 8, 50), "exactly affordable")
	assert.True(t, l.Cash().IsZero())
}

func TestSell_InsufficientHoldings(t *testing.T) {
	l := New(1000)
	err := l.Sell("A", 5, 10)
	require.ErrorIs(t, err, ErrInsufficientHoldings)

	require.NoError(t, l.Buy("A", 2, 10))
	require.ErrorIs(t, l.Sell("A", 3, 10), ErrInsufficientHoldings)
	assert.Equal(t, int64(2), l.Holding("A"))
}

func TestInvalidQuantityAndPrice(t *testing.T) {
	l := New(1000)
	assert.ErrorIs(t, l.Buy("A", 0, 10), ErrInvalidQuantity)
	assert.ErrorIs(t, l.Sell("A", -1, 10), ErrInvalidQuantity)
	assert.ErrorIs(t, l.Buy("A", 1, math.NaN()), ErrInvalidPrice)
	assert.ErrorIs(t, l.Buy("A", 1, 0), ErrInvalidPrice)
}

func TestMarkToMarket_KeepsLastKnownMark(t *testing.T) {
	l := New(1000)
	require.NoError(t, l.Buy("A", 5, 100))
	require.NoError(t, l.Buy("B", 2, 50))

	total := l.MarkToMarket(map[string]float64{"A": 120, "B": 60})
	assert.True(t, total.Equal(decimal.NewFromInt(400+600+120)), "got %s", total)

	// B missing, A unknown: both keep their previous marks.
	total = l.MarkToMarket(map[string]float64{"A": math.NaN()})
	assert.True(t, total.Equal(decimal.NewFromInt(400+600+120)), "got %s", total)

	// Marking never changes cash or holdings.
	assert.True(t, l.Cash().Equal(decimal.NewFromInt(400)))
	assert.Equal(t, int64(5), l.Holding("A"))
}

func TestConservation(t *testing.T) {
	type op struct {
		buy   bool
		name  string
		qty   int64
		price float64
	}
	ops := []op{
		{true, "A", 10, 12.5},
		{true, "B", 3, 101.25},
		{false, "A", 4, 13.1},
		{true, "C", 7, 0.3},
		{false, "B", 3, 99.9},
		{true, "A", 1, 14.05},
	}

	l := New(10_000)
	cash := decimal.NewFromInt(10_000)
	qty := map[string]int64{}
	last := map[string]decimal.Decimal{}

	for _, o := range ops {
		px := decimal.NewFromFloat(o.price)
		amount := px.Mul(decimal.NewFromInt(o.qty))
		if o.buy {
			require.NoError(t, l.Buy(o.name, o.qty, o.price))
			cash = cash.Sub(amount)
			qty[o.name] += o.qty
		} else {
			require.NoError(t, l.Sell(o.name, o.qty, o.price))
			cash = cash.Add(amount)
			qty[o.name] -= o.qty
		}
		last[o.name] = px

		marks := map[string]float64{}
		want := cash
		for name, q := range qty {
			marks[name], _ = last[name].Float64()
			want = want.Add(last[name].Mul(decimal.NewFromInt(q)))
		}
		got := l.MarkToMarket(marks)
		assert.True(t, got.Equal(want), "after %+v: ledger %s, manual %s", o, got, want)
		assert.False(t, l.Cash().IsNegative())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	l := New(100)
	require.NoError(t, l.Buy("A", 1, 10))
	l.MarkToMarket(map[string]float64{"A": 10})

	snap := l.Snapshot()
	snap.Holdings["A"] = 99
	assert.Equal(t, int64(1), l.Holding("A"))
	assert.InDelta(t, 100.0, snap.TotalValue, 1e-9)
	assert.InDelta(t, 90.0, snap.Cash, 1e-9)
}
