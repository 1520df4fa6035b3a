// Package cache implements repository.ProductCache on Redis.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/student-store/internal/domain/entity"
	"github.com/oksasatya/student-store/pkg/helpers"
)

func productKey(id string) string { return "product:" + id }

type ProductCache struct {
	RDB *redis.Client
	TTL time.Duration
}

func NewProductCache(rdb *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{RDB: rdb, TTL: ttl}
}

func (c *ProductCache) Get(ctx context.Context, id string) (*entity.Product, bool, error) {
	var p entity.Product
	ok, err := helpers.RedisGetJSON(ctx, c.RDB, productKey(id), &p)
	if err != nil || !ok {
		return nil, false, err
	}
	return &p, true, nil
}

func (c *ProductCache) Set(ctx context.Context, p *entity.Product) error {
	return helpers.RedisSetJSON(ctx, c.RDB, productKey(p.ID), p, c.TTL)
}

func (c *ProductCache) Invalidate(ctx context.Context, id string) error {
	return helpers.RedisDel(ctx, c.RDB, productKey(id))
}
