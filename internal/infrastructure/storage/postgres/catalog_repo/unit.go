// Package catalog_repo reads catalog tables of the legacy schema.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/domain/catalogs/unit"
	"stockledger/internal/infrastructure/storage/postgres"
)

const unitTable = "tb_unite"

// UnitRepo implements unit.Repository.
type UnitRepo struct {
	db      postgres.Querier
	builder squirrel.StatementBuilderType
}

// NewUnitRepo creates a new unit repository.
func NewUnitRepo(db postgres.Querier) *UnitRepo {
	return &UnitRepo{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ unit.Repository = (*UnitRepo)(nil)

// ListByArticle returns the live units of an article ordered by level, missing levels last, then id.
func (r *UnitRepo) ListByArticle(ctx context.Context, articleID int64) ([]unit.Record, error) {
	sql, args, err := r.listQuery(articleID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var records []unit.Record
	if err := pgxscan.Select(ctx, r.db, &records, sql, args...); err != nil {
		return nil, postgres.Classify(fmt.Errorf("list units of article %d: %w", articleID, err))
	}

	return records, nil
}

func (r *UnitRepo) listQuery(articleID int64) squirrel.SelectBuilder {
	return r.builder.Select(
		"idunite",
		"idarticle",
		"COALESCE(codearticle, '') AS codearticle",
		"COALESCE(designationunite, '') AS designationunite",
		"qtunite::numeric AS qtunite",
		"niveau",
	).From(unitTable).
		Where(squirrel.Eq{"idarticle": articleID}).
		Where("COALESCE(deleted, 0) <> 1").
		OrderBy("niveau NULLS LAST", "idunite")
}
