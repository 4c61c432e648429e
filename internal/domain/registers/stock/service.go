package stock

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalogs/unit"
	"stockledger/pkg/logger"
)

var tracer = otel.Tracer("stockledger/stock")

// Query asks for the stock of an article in one display unit.
type Query struct {
	ArticleID     int64
	DisplayUnitID int64
	// WarehouseID is nil for the total across all warehouses.
	WarehouseID *int64
}

// Breakdown is the full trace of one reconciliation.
type Breakdown struct {
	Query Query       `json:"-"`
	Units []UnitTotal `json:"units"`
	// TotalBase is the reservoir in base units, before clamping.
	TotalBase types.Quantity `json:"totalBase"`
	// DisplayCoefficient is 1 when the display unit is unknown.
	DisplayCoefficient types.Coefficient `json:"displayCoefficient"`
	// Raw is TotalBase / DisplayCoefficient, possibly negative.
	Raw types.Quantity `json:"raw"`
	// Quantity is Raw clamped at zero.
	Quantity types.Quantity `json:"quantity"`
}

// Level is the stock of an article expressed in one of its units.
type Level struct {
	Unit     unit.Unit      `json:"unit"`
	Quantity types.Quantity `json:"quantity"`
}

// Service reconciles the stock of articles.
// It never writes and holds no mutable state, so one instance serves concurrent callers.
type Service struct {
	units      unit.Resolver
	aggregator *Aggregator
}

// NewService creates a stock service.
func NewService(units unit.Resolver, movements MovementRepository) *Service {
	return &Service{
		units:      units,
		aggregator: NewAggregator(movements),
	}
}

// NewServiceWithAggregator creates a stock service over a prepared aggregator.
func NewServiceWithAggregator(units unit.Resolver, aggregator *Aggregator) *Service {
	return &Service{units: units, aggregator: aggregator}
}

// Reconcile returns the on-hand quantity of q.ArticleID in q.DisplayUnitID.
// The result is never negative; only an unreachable store yields an error.
func (s *Service) Reconcile(ctx context.Context, q Query) (types.Quantity, error) {
	b, err := s.Breakdown(ctx, q)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Quantity, nil
}

// Breakdown reconciles q and keeps every intermediate figure.
func (s *Service) Breakdown(ctx context.Context, q Query) (Breakdown, error) {
	ctx, span := tracer.Start(ctx, "stock.reconcile",
		trace.WithAttributes(
			attribute.Int64("article.id", q.ArticleID),
			attribute.Int64("unit.id", q.DisplayUnitID),
		))
	defer span.End()

	totals, totalBase, err := s.reservoir(ctx, q.ArticleID, q.WarehouseID)
	if err != nil {
		span.RecordError(err)
		return Breakdown{}, err
	}

	coef := displayCoefficient(totals, q.DisplayUnitID)
	raw := totalBase.Div(coef)

	b := Breakdown{
		Query:              q,
		Units:              totals,
		TotalBase:          totalBase,
		DisplayCoefficient: coef,
		Raw:                raw,
		Quantity:           types.ClampNonNegative(raw),
	}

	if raw.IsNegative() {
		logger.Debug(ctx, "negative reservoir reported as zero",
			"article_id", q.ArticleID,
			"unit_id", q.DisplayUnitID,
			"raw", raw.String(),
		)
	}

	return b, nil
}

// Levels returns the stock of an article in each of its units from a single reservoir computation.
func (s *Service) Levels(ctx context.Context, articleID int64, warehouseID *int64) ([]Level, error) {
	ctx, span := tracer.Start(ctx, "stock.levels",
		trace.WithAttributes(attribute.Int64("article.id", articleID)))
	defer span.End()

	totals, totalBase, err := s.reservoir(ctx, articleID, warehouseID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	levels := make([]Level, 0, len(totals))
	for _, t := range totals {
		levels = append(levels, Level{
			Unit:     t.Unit,
			Quantity: types.ClampNonNegative(t.Unit.FromBase(totalBase)),
		})
	}
	return levels, nil
}

func (s *Service) reservoir(ctx context.Context, articleID int64, warehouseID *int64) ([]UnitTotal, types.Quantity, error) {
	units, err := s.units.Resolve(ctx, articleID)
	if err != nil {
		if apperror.IsUnavailable(err) || ctx.Err() != nil {
			return nil, decimal.Zero, fmt.Errorf("resolve units of article %d: %w", articleID, err)
		}
		logger.Warn(ctx, "unit query failed, article treated as having no units",
			"article_id", articleID,
			"error", err,
		)
		units = nil
	}

	totals := make([]UnitTotal, 0, len(units))
	totalBase := decimal.Zero
	for _, u := range units {
		t, err := s.aggregator.AggregateUnit(ctx, u, warehouseID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		totals = append(totals, t)
		totalBase = totalBase.Add(t.Base)
	}

	return totals, totalBase, nil
}

func displayCoefficient(totals []UnitTotal, unitID int64) types.Coefficient {
	units := make([]unit.Unit, len(totals))
	for i, t := range totals {
		units[i] = t.Unit
	}
	return unit.CoefficientOf(units, unitID)
}
