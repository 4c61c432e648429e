// Package stock computes the consolidated multi-unit stock of an article.
//
// Movements recorded in any unit of an article are pooled into one base-unit
// reservoir, then converted into whichever unit the caller displays.
package stock

import (
	"context"

	"github.com/shopspring/decimal"
)

// Scope narrows one aggregate query.
type Scope struct {
	ArticleID int64
	UnitID    int64
	// UnitCode is used instead of ArticleID/UnitID by kinds keyed by code.
	UnitCode string
	// WarehouseID is nil for "all warehouses".
	WarehouseID *int64
}

// MovementRepository runs the per-kind aggregate queries.
type MovementRepository interface {
	// SumMovements returns the unsigned sum of spec's quantity column within scope,
	// honoring spec's soft-delete policy. No matching rows yields zero.
	//
	// Errors must be *apperror.AppError: CodeUnavailable when the store cannot be
	// reached, anything else for a failure local to this query.
	SumMovements(ctx context.Context, spec KindSpec, scope Scope) (decimal.Decimal, error)
}
