// Package unit provides the packaging units of an article and their conversion coefficients.
package unit

import (
	"github.com/shopspring/decimal"

	"stockledger/internal/core/types"
)

// Record is a row of tb_unite as stored.
// Coefficient is relative or absolute depending on the deployment Strategy.
type Record struct {
	ID          int64               `db:"idunite"`
	ArticleID   int64               `db:"idarticle"`
	Code        string              `db:"codearticle"`
	Label       string              `db:"designationunite"`
	Coefficient decimal.NullDecimal `db:"qtunite"`
	Level       *int                `db:"niveau"`
}

// Unit is a unit of an article with its coefficient resolved against the base unit.
type Unit struct {
	ID        int64  `json:"id"`
	ArticleID int64  `json:"articleId"`
	Code      string `json:"code"`
	Label     string `json:"label"`
	Level     *int   `json:"level,omitempty"`

	// Coefficient is how many base units one instance of this unit equals. Always positive.
	Coefficient types.Coefficient `json:"coefficient"`
}

// ToBase expresses qty of this unit in base units.
func (u Unit) ToBase(qty types.Quantity) types.Quantity {
	return qty.Mul(types.PositiveOrOne(u.Coefficient))
}

// FromBase expresses a base-unit quantity in this unit.
func (u Unit) FromBase(base types.Quantity) types.Quantity {
	return base.Div(types.PositiveOrOne(u.Coefficient))
}

// ConvertTo converts qty of this unit into target.
func (u Unit) ConvertTo(qty types.Quantity, target Unit) types.Quantity {
	return target.FromBase(u.ToBase(qty))
}

// Find returns the unit with the given id.
func Find(units []Unit, id int64) (Unit, bool) {
	for _, u := range units {
		if u.ID == id {
			return u, true
		}
	}
	return Unit{}, false
}

// CoefficientOf returns the coefficient of unit id, or 1 when the unit is unknown.
func CoefficientOf(units []Unit, id int64) types.Coefficient {
	if u, ok := Find(units, id); ok {
		return types.PositiveOrOne(u.Coefficient)
	}
	return types.One()
}
