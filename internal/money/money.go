// Package money converts between major currency units (rupees) and the minor
// units (paise) the gateway works in.
package money

import "github.com/shopspring/decimal"

const minorExp = -2

var (
	Zero    = decimal.Zero
	hundred = decimal.NewFromInt(100)
)

// ToMinor rounds d to the nearest minor unit.
func ToMinor(d decimal.Decimal) int64 {
	return d.Shift(-minorExp).Round(0).IntPart()
}

// Exact reports whether d is a whole number of minor units.
func Exact(d decimal.Decimal) bool {
	return d.Equal(d.Round(-minorExp))
}

func FromMinor(v int64) decimal.Decimal {
	return decimal.New(v, minorExp)
}

// Percentage renders part/whole as "12.50%". A zero whole yields "0%".
func Percentage(part, whole decimal.Decimal) string {
	if whole.IsZero() {
		return "0%"
	}
	return part.Div(whole).Mul(hundred).StringFixed(2) + "%"
}
