package stockfolio

import (
	"math"

	"github.com/shopspring/decimal"
)

// Calculators are pure functions over float64 inputs. Every input goes
// through decimal arithmetic so results are exact for the monetary values
// involved; NaN and infinite inputs yield 0.

// dec converts all values to decimals, ok is false if any of them is not finite.
func dec(values ...float64) (ds []decimal.Decimal, ok bool) {
	ds = make([]decimal.Decimal, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		ds[i] = decimal.NewFromFloat(v)
	}
	return ds, true
}

// Gain returns (current - cost) * shares.
func Gain(current, cost, shares float64) float64 {
	d, ok := dec(current, cost, shares)
	if !ok {
		return 0
	}
	return d[0].Sub(d[1]).Mul(d[2]).InexactFloat64()
}

// ReturnRate returns (current - cost) / cost, or 0 if cost is 0.
func ReturnRate(current, cost float64) float64 {
	d, ok := dec(current, cost)
	if !ok || d[1].IsZero() {
		return 0
	}
	return d[0].Sub(d[1]).Div(d[1]).InexactFloat64()
}

// YieldRate returns annualDividend / current, or 0 if current is 0.
func YieldRate(annualDividend, current float64) float64 {
	d, ok := dec(annualDividend, current)
	if !ok || d[1].IsZero() {
		return 0
	}
	return d[0].Div(d[1]).InexactFloat64()
}

// AdjustedCost returns the per-share cost once dividend income is deducted
// from the total cost: max(0, (totalCost - totalDividend) / shares).
// It returns 0 if shares is 0.
func AdjustedCost(totalCost, totalDividend, shares float64) float64 {
	d, ok := dec(totalCost, totalDividend, shares)
	if !ok || d[2].IsZero() {
		return 0
	}
	r := d[0].Sub(d[1]).Div(d[2])
	return decimal.Max(r, decimal.Zero).InexactFloat64()
}

// AdjustedCostPrice returns costPrice - totalDividend/shares. It returns
// costPrice untouched when there is no dividend or no share, and floors the
// result at 0 only if clamp is set.
func AdjustedCostPrice(costPrice, totalDividend, shares float64, clamp bool) float64 {
	d, ok := dec(costPrice, totalDividend, shares)
	if !ok {
		return 0
	}
	if d[1].IsZero() || d[2].IsZero() {
		return costPrice
	}
	r := d[0].Sub(d[1].Div(d[2]))
	if clamp {
		r = decimal.Max(r, decimal.Zero)
	}
	return r.InexactFloat64()
}

// TotalReturnRate returns the return including dividend income:
// (current*shares + totalDividend - cost*shares) / (cost*shares).
// It returns 0 if cost or shares is 0.
func TotalReturnRate(current, cost, shares, totalDividend float64) float64 {
	d, ok := dec(current, cost, shares, totalDividend)
	if !ok || d[1].IsZero() || d[2].IsZero() {
		return 0
	}
	invested := d[1].Mul(d[2])
	return d[0].Mul(d[2]).Add(d[3]).Sub(invested).Div(invested).InexactFloat64()
}

// AverageCost returns the weighted cost of two lots, or 0 if they have no share in total.
func AverageCost(existingShares, existingCost, newShares, newCost float64) float64 {
	d, ok := dec(existingShares, existingCost, newShares, newCost)
	if !ok {
		return 0
	}
	total := d[0].Add(d[2])
	if total.IsZero() {
		return 0
	}
	return d[0].Mul(d[1]).Add(d[2].Mul(d[3])).Div(total).InexactFloat64()
}
