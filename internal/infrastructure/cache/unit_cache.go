package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stockledger/internal/domain/catalogs/unit"
	"stockledger/pkg/logger"
)

const unitKeyPrefix = "stockledger:units"

// DefaultUnitTTL bounds how long a unit change can go unnoticed.
const DefaultUnitTTL = 30 * time.Second

// UnitCache is a read-through unit.Resolver.
// Resolved units are cached per strategy and article; any cache failure
// falls back to the wrapped resolver, so the cache never changes a result.
type UnitCache struct {
	next     unit.Resolver
	store    Store
	strategy unit.Strategy
	ttl      time.Duration
}

// NewUnitCache wraps next. A non-positive ttl uses DefaultUnitTTL.
func NewUnitCache(next unit.Resolver, store Store, strategy unit.Strategy, ttl time.Duration) *UnitCache {
	if ttl <= 0 {
		ttl = DefaultUnitTTL
	}
	return &UnitCache{next: next, store: store, strategy: strategy, ttl: ttl}
}

var _ unit.Resolver = (*UnitCache)(nil)

// Resolve implements unit.Resolver.
func (c *UnitCache) Resolve(ctx context.Context, articleID int64) ([]unit.Unit, error) {
	key := c.key(articleID)

	data, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var units []unit.Unit
		if jsonErr := json.Unmarshal(data, &units); jsonErr == nil {
			logger.Debug(ctx, "unit cache hit", "article_id", articleID)
			return units, nil
		}
		logger.Warn(ctx, "corrupted unit cache entry dropped", "key", key)
		_ = c.store.Del(ctx, key)
	case errors.Is(err, ErrMiss):
		logger.Debug(ctx, "unit cache miss", "article_id", articleID)
	default:
		logger.Warn(ctx, "unit cache read failed", "key", key, "error", err)
	}

	units, err := c.next.Resolve(ctx, articleID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(units); err == nil {
		if err := c.store.Set(ctx, key, payload, c.ttl); err != nil {
			logger.Warn(ctx, "unit cache write failed", "key", key, "error", err)
		}
	}

	return units, nil
}

// Invalidate drops the cached units of an article.
func (c *UnitCache) Invalidate(ctx context.Context, articleID int64) error {
	return c.store.Del(ctx, c.key(articleID))
}

func (c *UnitCache) key(articleID int64) string {
	return fmt.Sprintf("%s:%s:%d", unitKeyPrefix, c.strategy, articleID)
}
