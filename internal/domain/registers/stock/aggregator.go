package stock

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalogs/unit"
	"stockledger/pkg/logger"
)

// Contribution is what one kind adds to one unit's total.
type Contribution struct {
	Kind Kind `json:"kind"`
	// Quantity is the signed sum in the unit's own denomination.
	Quantity types.Quantity `json:"quantity"`
	// Failed is set when the kind's query errored and was counted as zero.
	Failed bool `json:"failed,omitempty"`
}

// UnitTotal is the signed contribution of one unit to the reservoir.
type UnitTotal struct {
	Unit          unit.Unit      `json:"unit"`
	Contributions []Contribution `json:"contributions"`
	// Own is Σ contributions in the unit's denomination.
	Own types.Quantity `json:"own"`
	// Base is Own × coefficient.
	Base types.Quantity `json:"base"`
}

// Aggregator sums every movement kind for one unit.
type Aggregator struct {
	repo  MovementRepository
	kinds []KindSpec
}

// NewAggregator creates an aggregator over the canonical kind table.
func NewAggregator(repo MovementRepository) *Aggregator {
	return &Aggregator{repo: repo, kinds: Kinds()}
}

// NewAggregatorWithKinds creates an aggregator over a custom kind table.
func NewAggregatorWithKinds(repo MovementRepository, kinds []KindSpec) *Aggregator {
	return &Aggregator{repo: repo, kinds: kinds}
}

// AggregateUnit returns the signed base-unit contribution of u.
//
// A kind whose query fails for a reason other than connectivity counts as zero;
// an unreachable store aborts the whole computation.
func (a *Aggregator) AggregateUnit(ctx context.Context, u unit.Unit, warehouseID *int64) (UnitTotal, error) {
	scope := Scope{
		ArticleID:   u.ArticleID,
		UnitID:      u.ID,
		UnitCode:    u.Code,
		WarehouseID: warehouseID,
	}

	total := UnitTotal{
		Unit:          u,
		Contributions: make([]Contribution, 0, len(a.kinds)),
		Own:           decimal.Zero,
	}

	for _, spec := range a.kinds {
		// A unit without a code has no inventory lines of its own.
		if spec.UnitKey == UnitKeyCode && scope.UnitCode == "" {
			total.Contributions = append(total.Contributions, Contribution{Kind: spec.Kind, Quantity: decimal.Zero})
			continue
		}

		sum, err := a.repo.SumMovements(ctx, spec, scope)
		if err != nil {
			if apperror.IsUnavailable(err) || ctx.Err() != nil {
				return UnitTotal{}, fmt.Errorf("sum %s for unit %d: %w", spec.Kind, u.ID, err)
			}
			logger.Warn(ctx, "movement query failed, counted as zero",
				"kind", spec.Kind,
				"article_id", u.ArticleID,
				"unit_id", u.ID,
				"error", err,
			)
			total.Contributions = append(total.Contributions, Contribution{
				Kind:     spec.Kind,
				Quantity: decimal.Zero,
				Failed:   true,
			})
			continue
		}

		signed := spec.Sign.Apply(sum)
		total.Contributions = append(total.Contributions, Contribution{Kind: spec.Kind, Quantity: signed})
		total.Own = total.Own.Add(signed)
	}

	total.Base = u.ToBase(total.Own)
	return total, nil
}
