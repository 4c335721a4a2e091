package backtest

import (
	"github.com/shopspring/decimal"
)

// SizeOrder returns floor(min(total*allocation, cash) / price), the number
// of whole units a new position may buy. The result never costs more than
// cash. A non-positive price sizes to zero.
func SizeOrder(total, cash, price decimal.Decimal, allocation float64) int64 {
	if !price.IsPositive() || !cash.IsPositive() {
		return 0
	}

	budget := decimal.Min(total.Mul(decimal.NewFromFloat(allocation)), cash)
	if !budget.IsPositive() {
		return 0
	}

	qty := budget.Div(price).Floor().IntPart()
	for qty > 0 && price.Mul(decimal.NewFromInt(qty)).GreaterThan(cash) {
		qty--
	}
	return qty
}
