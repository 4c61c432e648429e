package unit

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/types"
)

// Strategy selects how stored coefficients are interpreted.
// A deployment uses exactly one; the two disagree for hierarchies deeper than two levels.
type Strategy string

const (
	// StrategyFlat treats every stored coefficient as already absolute.
	StrategyFlat Strategy = "flat"
	// StrategyHierarchical treats coefficients as relative to the next level down
	// and multiplies them along the level chain.
	StrategyHierarchical Strategy = "hierarchical"
)

// ParseStrategy parses a configuration value.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyFlat:
		return StrategyFlat, nil
	case StrategyHierarchical:
		return StrategyHierarchical, nil
	}
	return "", apperror.NewValidation("unknown unit strategy").WithDetail("value", s)
}

// Resolver returns all units of an article with absolute, positive coefficients.
type Resolver interface {
	Resolve(ctx context.Context, articleID int64) ([]Unit, error)
}

// NewResolver builds the resolver for a strategy.
func NewResolver(strategy Strategy, repo Repository) (Resolver, error) {
	switch strategy {
	case StrategyFlat:
		return &FlatResolver{repo: repo}, nil
	case StrategyHierarchical:
		return &HierarchicalResolver{repo: repo}, nil
	}
	return nil, apperror.NewValidation("unknown unit strategy").WithDetail("value", string(strategy))
}

// FlatResolver uses qtunite as is.
type FlatResolver struct {
	repo Repository
}

// NewFlatResolver creates a FlatResolver.
func NewFlatResolver(repo Repository) *FlatResolver {
	return &FlatResolver{repo: repo}
}

// Resolve implements Resolver.
func (r *FlatResolver) Resolve(ctx context.Context, articleID int64) ([]Unit, error) {
	records, err := r.repo.ListByArticle(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return ResolveFlat(records), nil
}

// ResolveFlat applies the flat strategy to stored records.
func ResolveFlat(records []Record) []Unit {
	units := make([]Unit, 0, len(records))
	for _, rec := range records {
		units = append(units, fromRecord(rec, types.NullPositiveOrOne(rec.Coefficient)))
	}
	return units
}

// HierarchicalResolver multiplies relative coefficients ordered by level.
type HierarchicalResolver struct {
	repo Repository
}

// NewHierarchicalResolver creates a HierarchicalResolver.
func NewHierarchicalResolver(repo Repository) *HierarchicalResolver {
	return &HierarchicalResolver{repo: repo}
}

// Resolve implements Resolver.
func (r *HierarchicalResolver) Resolve(ctx context.Context, articleID int64) ([]Unit, error) {
	records, err := r.repo.ListByArticle(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return ResolveHierarchical(records), nil
}

// ResolveHierarchical applies the cumulative strategy to stored records.
//
// Records are ordered by level ascending with missing levels last, ties broken
// by id. Each unit gets exp(Σ ln coef) over itself and every unit before it.
// Once exp overflows float64 the exact decimal product is used instead.
func ResolveHierarchical(records []Record) []Unit {
	ordered := make([]Record, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return lessByLevel(ordered[i], ordered[j])
	})

	units := make([]Unit, 0, len(ordered))
	var logSum float64
	product := types.One()
	for _, rec := range ordered {
		c := types.NullPositiveOrOne(rec.Coefficient)
		logSum += math.Log(c.InexactFloat64())
		product = product.Mul(c)

		abs := math.Exp(logSum)
		if math.IsInf(abs, 1) {
			units = append(units, fromRecord(rec, product))
			continue
		}
		units = append(units, fromRecord(rec, types.FromFloatCoefficient(abs)))
	}
	return units
}

func lessByLevel(a, b Record) bool {
	switch {
	case a.Level == nil && b.Level == nil:
		return a.ID < b.ID
	case a.Level == nil:
		return false
	case b.Level == nil:
		return true
	case *a.Level != *b.Level:
		return *a.Level < *b.Level
	}
	return a.ID < b.ID
}

func fromRecord(rec Record, coef types.Coefficient) Unit {
	return Unit{
		ID:          rec.ID,
		ArticleID:   rec.ArticleID,
		Code:        rec.Code,
		Label:       rec.Label,
		Level:       rec.Level,
		Coefficient: coef,
	}
}
