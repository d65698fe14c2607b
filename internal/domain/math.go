package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const displayPrecision = 2

var hundred = decimal.NewFromInt(100)

// SafeParse parses a string into a decimal, returning zero for invalid or empty input.
func SafeParse(value string) decimal.Decimal {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DivOrZero divides a by b, returning zero when b is zero.
func DivOrZero(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// Percent returns 100 * part / whole, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	return DivOrZero(part.Mul(hundred), whole)
}

// FormatAmount rounds to two decimal places for display.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(displayPrecision)
}
