// Package types provides common type aliases and utilities.
package types

import (
	"math"

	"github.com/shopspring/decimal"
)

// Quantity is an exact stock quantity.
// Uses decimal.Decimal so pooled sums across units do not drift.
type Quantity = decimal.Decimal

// Coefficient converts one instance of a unit into base units.
type Coefficient = decimal.Decimal

// CoefficientScale is the number of fractional digits kept when a coefficient
// comes out of floating point (log/exp products).
const CoefficientScale int32 = 6

var one = decimal.NewFromInt(1)

// One returns the neutral coefficient.
func One() Coefficient {
	return one
}

// PositiveOrOne returns c, or 1 when c is zero or negative.
func PositiveOrOne(c Coefficient) Coefficient {
	if !c.IsPositive() {
		return one
	}
	return c
}

// NullPositiveOrOne is PositiveOrOne for a nullable column.
func NullPositiveOrOne(c decimal.NullDecimal) Coefficient {
	if !c.Valid {
		return one
	}
	return PositiveOrOne(c.Decimal)
}

// ClampNonNegative returns q, or zero when q is negative.
func ClampNonNegative(q Quantity) Quantity {
	if q.IsNegative() {
		return decimal.Zero
	}
	return q
}

// FromFloatCoefficient rounds a float product back into an exact coefficient.
// NaN, infinities and non-positive values collapse to 1.
func FromFloatCoefficient(f float64) Coefficient {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return one
	}
	return decimal.NewFromFloat(f).Round(CoefficientScale)
}
