// Package app assembles the ledger from configuration for the server and the worker.
package app

import (
	"context"
	"fmt"

	"stockledger/internal/domain/catalogs/unit"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/infrastructure/cache"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/catalog_repo"
	"stockledger/internal/infrastructure/storage/postgres/register_repo"
	"stockledger/pkg/config"
	"stockledger/pkg/logger"
)

// Ledger is the wired stock service and the pieces the hosts may need to reach.
type Ledger struct {
	Stock    *stock.Service
	Strategy unit.Strategy
	// UnitCache is nil when Redis is not configured or unreachable.
	UnitCache *cache.UnitCache

	redis *cache.RedisStore
}

// NewLedger wires repositories, the unit strategy and the optional unit cache over db.
// An unreachable Redis disables the cache instead of failing startup.
func NewLedger(ctx context.Context, cfg *config.Config, db postgres.Querier) (*Ledger, error) {
	strategy, err := unit.ParseStrategy(cfg.Ledger.Strategy)
	if err != nil {
		return nil, err
	}

	resolver, err := unit.NewResolver(strategy, catalog_repo.NewUnitRepo(db))
	if err != nil {
		return nil, fmt.Errorf("unit resolver: %w", err)
	}

	l := &Ledger{Strategy: strategy}

	if cfg.Redis.Enabled() {
		store, err := cache.NewRedisStore(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn(ctx, "unit cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			l.redis = store
			l.UnitCache = cache.NewUnitCache(resolver, store, strategy, cfg.Redis.UnitTTL)
			resolver = l.UnitCache
			logger.Info(ctx, "unit cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.UnitTTL)
		}
	}

	movements := register_repo.NewStockRepo(db,
		register_repo.WithValidatedSalesOnly(cfg.Ledger.RequireValidatedSales))

	l.Stock = stock.NewService(resolver, movements)

	logger.Info(ctx, "ledger ready",
		"strategy", strategy,
		"validated_sales_only", cfg.Ledger.RequireValidatedSales,
	)
	return l, nil
}

// Close releases the Redis connection, if any.
func (l *Ledger) Close() {
	if l.redis != nil {
		_ = l.redis.Close()
	}
}
