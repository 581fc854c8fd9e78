package bom

import (
	"github.com/shopspring/decimal"
)

// DefaultMarginPercent наценка по умолчанию в форме изделия.
var DefaultMarginPercent = decimal.NewFromInt(20)

var hundred = decimal.NewFromInt(100)

// CanMakeCount сколько изделий можно собрать из текущих остатков прямо сейчас.
// Пустая спецификация даёт 0, а не «бесконечно».
func CanMakeCount(lines []Line, stock StockLookup) int64 {
	if len(lines) == 0 || stock == nil {
		return 0
	}
	var best int64 = -1
	for _, l := range lines {
		if !l.Quantity.IsPositive() {
			return 0
		}
		onHand, ok := stock.Stock(l.MaterialID)
		if !ok || onHand.IsNegative() {
			return 0
		}
		n := onHand.Div(l.Quantity).Floor().IntPart()
		if best < 0 || n < best {
			best = n
		}
	}
	if best < 0 {
		return 0
	}
	return best
}

// SellingPrice себестоимость плюс наценка в процентах.
func SellingPrice(total, marginPercent decimal.Decimal) decimal.Decimal {
	return total.Mul(decimal.NewFromInt(1).Add(marginPercent.Div(hundred)))
}
