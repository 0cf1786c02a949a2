package stockfolio

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Percent is a percentage, 10 means 10%.
type Percent float64

// PercentOf converts a rate such as ReturnRate or YieldRate, where 0.1
// means 10%, to a Percent.
func PercentOf(rate float64) Percent {
	return Percent(mustDec(rate).Mul(decimal.NewFromInt(100)).InexactFloat64())
}

// Equal compares percentages to the ten thousandth of a point.
func (p Percent) Equal(q Percent) bool {
	return math.Abs(float64(p-q)) < 1e-4
}

func (p Percent) String() string { return fmt.Sprintf("%.2f%%", float64(p)) }

// SignedString always shows the sign, and "-" for a zero percentage so that
// tables keep empty cells readable.
func (p Percent) SignedString() string {
	if s := fmt.Sprintf("%+.2f%%", float64(p)); s != "+0.00%" && s != "-0.00%" {
		return s
	}
	return "-"
}
