package stockfolio

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the currency of every amount in a portfolio.
const Currency = "TWD"

// FormatMoney formats a TWD amount with the currency grapheme and thousands separators.
func FormatMoney(v float64) string {
	cur := *money.New(0, Currency).Currency()
	d, ok := dec(v)
	if !ok {
		return "-"
	}
	return cur.Formatter().Format(d[0].Shift(int32(cur.Fraction)).Round(0).IntPart())
}

// SignedMoney is like FormatMoney but always shows the sign, and renders 0 as "-".
func SignedMoney(v float64) string {
	if v == 0 {
		return "-"
	}
	if v > 0 {
		return "+" + FormatMoney(v)
	}
	return FormatMoney(v)
}

// mustDec converts v to a decimal, non finite values become 0.
func mustDec(v float64) decimal.Decimal {
	d, ok := dec(v)
	if !ok {
		return decimal.Zero
	}
	return d[0]
}
