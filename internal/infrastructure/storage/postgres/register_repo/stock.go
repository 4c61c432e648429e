// Package register_repo provides PostgreSQL implementations for register repositories.
// Movements are read from the legacy document tables; nothing here writes.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stockledger/internal/core/apperror"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/infrastructure/storage/postgres"
)

var tracer = otel.Tracer("stockledger/register_repo")

const (
	detailAlias = "d"
	headerAlias = "h"

	deletedColumn = "deleted"
)

// StockRepo implements stock.MovementRepository.
type StockRepo struct {
	db      postgres.Querier
	builder squirrel.StatementBuilderType

	validatedSalesOnly bool
}

// StockRepoOption configures a StockRepo.
type StockRepoOption func(*StockRepo)

// WithValidatedSalesOnly restricts sales to headers whose status is VALIDEE.
func WithValidatedSalesOnly(on bool) StockRepoOption {
	return func(r *StockRepo) { r.validatedSalesOnly = on }
}

// NewStockRepo creates a new stock register repository.
func NewStockRepo(db postgres.Querier, opts ...StockRepoOption) *StockRepo {
	r := &StockRepo{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ stock.MovementRepository = (*StockRepo)(nil)

// SumMovements returns Σ quantity of one movement kind for one unit.
func (r *StockRepo) SumMovements(ctx context.Context, spec stock.KindSpec, scope stock.Scope) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "stock.sum_movements",
		trace.WithAttributes(
			attribute.String("kind", string(spec.Kind)),
			attribute.String("db.table", spec.Table),
		))
	defer span.End()

	if spec.UnitKey == stock.UnitKeyCode && scope.UnitCode == "" {
		return decimal.Zero, nil
	}

	sql, args, err := r.sumQuery(spec, scope).ToSql()
	if err != nil {
		return decimal.Zero, apperror.NewInternal(fmt.Errorf("build %s query: %w", spec.Kind, err))
	}

	var sum decimal.Decimal
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&sum); err != nil {
		span.RecordError(err)
		return decimal.Zero, postgres.Classify(fmt.Errorf("sum %s: %w", spec.Kind, err))
	}

	return sum, nil
}

// sumQuery builds the aggregate statement for spec.
//
//	SELECT COALESCE(SUM(d.<qty>), 0)::numeric
//	FROM <detail> d [JOIN <header> h ON h.<join> = d.<join>]
//	WHERE <unit match> [AND deleted filters] [AND status] [AND warehouse]
func (r *StockRepo) sumQuery(spec stock.KindSpec, scope stock.Scope) squirrel.SelectBuilder {
	q := r.builder.
		Select(fmt.Sprintf("COALESCE(SUM(%s), 0)::numeric", col(detailAlias, spec.QuantityColumn))).
		From(spec.Table + " " + detailAlias)

	if spec.Header != nil {
		q = q.Join(fmt.Sprintf("%s %s ON %s = %s",
			spec.Header.Table, headerAlias,
			col(headerAlias, spec.Header.JoinColumn),
			col(detailAlias, spec.Header.JoinColumn),
		))
	}

	switch spec.UnitKey {
	case stock.UnitKeyCode:
		q = q.Where(squirrel.Eq{col(detailAlias, spec.UnitColumn): scope.UnitCode})
	default:
		q = q.
			Where(squirrel.Eq{col(detailAlias, spec.ArticleColumn): scope.ArticleID}).
			Where(squirrel.Eq{col(detailAlias, spec.UnitColumn): scope.UnitID})
	}

	switch spec.Deleted {
	case stock.DeletedDetail:
		q = q.Where(notDeleted(detailAlias))
	case stock.DeletedDetailAndHeader:
		q = q.Where(notDeleted(detailAlias))
		if spec.Header != nil {
			q = q.Where(notDeleted(headerAlias))
		}
	}

	if r.validatedSalesOnly && spec.Header != nil && spec.Header.StatusColumn != "" {
		q = q.Where(squirrel.Eq{col(headerAlias, spec.Header.StatusColumn): stock.ValidatedSaleStatus})
	}

	if scope.WarehouseID != nil {
		alias := detailAlias
		if spec.WarehouseOnHeader && spec.Header != nil {
			alias = headerAlias
		}
		q = q.Where(squirrel.Eq{col(alias, spec.WarehouseColumn): *scope.WarehouseID})
	}

	return q
}

func col(alias, name string) string {
	return alias + "." + name
}

// notDeleted treats NULL as live; only deleted = 1 excludes a row.
func notDeleted(alias string) string {
	return fmt.Sprintf("COALESCE(%s, 0) <> 1", col(alias, deletedColumn))
}
