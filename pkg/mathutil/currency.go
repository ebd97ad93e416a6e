// Package mathutil provides common currency arithmetic over decimal amounts.
package mathutil

import (
	"github.com/iwvelando/contract-forecast/pkg/constants"
	"github.com/shopspring/decimal"
)

// Tolerance is the maximum difference at which two re-derived amounts are
// still considered equal.
var Tolerance = decimal.RequireFromString(constants.VerificationTolerance)

// Round rounds a value to two decimals using round-half-to-even, i.e. to
// represent real currency without drifting upward on long sums of half cents.
func Round(val decimal.Decimal) decimal.Decimal {
	return val.RoundBank(constants.CurrencyPlaces)
}

// Sum adds all values without intermediate rounding.
func Sum(vals ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range vals {
		total = total.Add(v)
	}
	return total
}

// ClampZero returns val, or zero when val is negative.
func ClampZero(val decimal.Decimal) decimal.Decimal {
	return Max(val, decimal.Zero)
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance decimal.Decimal) bool {
	return val1.Sub(val2).Abs().LessThanOrEqual(tolerance)
}

// Equal checks whether two currency values match within Tolerance.
func Equal(val1, val2 decimal.Decimal) bool {
	return WithinTolerance(val1, val2, Tolerance)
}

// Max returns the maximum of two values
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

