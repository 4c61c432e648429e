package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Querier is the read surface repositories need; *pgxpool.Pool, *pgx.Conn and pgx.Tx satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
