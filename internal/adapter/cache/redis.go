package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/redis/go-redis/v9"
)

var _ port.ProductsCache = (*ProductsCache)(nil)

const keyPrefix = "storefront:products:active"

type redisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// ProductsCache keeps pages of active products for a fixed TTL.
type ProductsCache struct {
	rdb redisAPI
	ttl time.Duration
}

func NewProductsCache(ctx context.Context, redisURL string, ttl time.Duration) (*ProductsCache, error) {
	const op = "NewProductsCache"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid redis url: %w", op, err)
	}

	c, err := NewProductsCacheWithAPI(ctx, redis.NewClient(opt), ttl)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func NewProductsCacheWithAPI(ctx context.Context, rdb redisAPI, ttl time.Duration) (*ProductsCache, error) {
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis is unavailable: %w", err)
	}
	slog.Info("redis is available", "op", "NewProductsCache")
	return &ProductsCache{rdb: rdb, ttl: ttl}, nil
}

func (c *ProductsCache) GetPage(
	ctx context.Context, offset, limit int,
) ([]domain.Product, bool, error) {
	const op = "ProductsCache.GetPage"

	data, err := c.rdb.Get(ctx, pageKey(offset, limit)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	var ps []domain.Product
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return ps, true, nil
}

func (c *ProductsCache) SetPage(
	ctx context.Context, offset, limit int, ps []domain.Product,
) error {
	const op = "ProductsCache.SetPage"

	if ps == nil {
		ps = []domain.Product{}
	}

	data, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.rdb.Set(ctx, pageKey(offset, limit), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *ProductsCache) Close() {
	const op = "ProductsCache.Close"
	log := slog.With("op", op)

	if err := c.rdb.Close(); err != nil {
		log.Error("failed to close redis client", "err", err)
		return
	}
	log.Info("redis client is closed")
}

func pageKey(offset, limit int) string {
	return fmt.Sprintf("%s:%d:%d", keyPrefix, offset, limit)
}
